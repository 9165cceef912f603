// Package dynamodb implements the version store on a single DynamoDB
// table. Each document keeps one item per version plus a LATEST pointer
// item, so cold loads are a single GetItem.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"insightdocs-backend/application/ports"
)

// DynamoDBVersionStore implements the VersionStore interface using DynamoDB
type DynamoDBVersionStore struct {
	client    *dynamodb.Client
	tableName string
}

// versionItem is how one persisted version is stored
type versionItem struct {
	PK            string `dynamodbav:"PK"` // DOC#<document_id>
	SK            string `dynamodbav:"SK"` // VERSION#<zero-padded version>
	RecordID      string `dynamodbav:"RecordID"`
	DocumentID    string `dynamodbav:"DocumentID"`
	Version       int    `dynamodbav:"Version"`
	Content       string `dynamodbav:"Content"`
	SavedBy       string `dynamodbav:"SavedBy"`
	SaveType      string `dynamodbav:"SaveType"`
	CommitMessage string `dynamodbav:"CommitMessage"`
	CreatedAt     string `dynamodbav:"CreatedAt"` // RFC3339
}

// latestItem is the per-document pointer to the newest version
type latestItem struct {
	PK      string `dynamodbav:"PK"` // DOC#<document_id>
	SK      string `dynamodbav:"SK"` // LATEST
	Content string `dynamodbav:"Content"`
	Version int    `dynamodbav:"Version"`
}

// NewDynamoDBVersionStore creates a version store on an existing client
func NewDynamoDBVersionStore(client *dynamodb.Client, tableName string) *DynamoDBVersionStore {
	return &DynamoDBVersionStore{
		client:    client,
		tableName: tableName,
	}
}

// NewClient builds a DynamoDB client from the default AWS config chain
func NewClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

func docPK(documentID string) string {
	return fmt.Sprintf("DOC#%s", documentID)
}

// versionSK zero-pads so lexicographic SK order matches numeric order
func versionSK(version int) string {
	return fmt.Sprintf("VERSION#%010d", version)
}

// LoadLatest returns the newest persisted content for a document
func (s *DynamoDBVersionStore) LoadLatest(ctx context.Context, documentID string) (ports.LatestContent, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: docPK(documentID)},
			"SK": &types.AttributeValueMemberS{Value: "LATEST"},
		},
	})
	if err != nil {
		return ports.LatestContent{}, fmt.Errorf("failed to get latest content: %w", err)
	}
	if result.Item == nil {
		return ports.LatestContent{}, ports.ErrVersionNotFound
	}

	var latest latestItem
	if err := attributevalue.UnmarshalMap(result.Item, &latest); err != nil {
		return ports.LatestContent{}, fmt.Errorf("failed to unmarshal latest content: %w", err)
	}
	return ports.LatestContent{Content: latest.Content, Version: latest.Version}, nil
}

// LoadVersion returns the content persisted at an exact version
func (s *DynamoDBVersionStore) LoadVersion(ctx context.Context, documentID string, version int) (string, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: docPK(documentID)},
			"SK": &types.AttributeValueMemberS{Value: versionSK(version)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get version %d: %w", version, err)
	}
	if result.Item == nil {
		return "", ports.ErrVersionNotFound
	}

	var item versionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return "", fmt.Errorf("failed to unmarshal version record: %w", err)
	}
	return item.Content, nil
}

// AppendVersion records a new version and moves the LATEST pointer in a
// single transaction, so readers never see one without the other.
func (s *DynamoDBVersionStore) AppendVersion(ctx context.Context, record ports.VersionRecord) (ports.VersionRecord, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	item, err := attributevalue.MarshalMap(versionItem{
		PK:            docPK(record.DocumentID),
		SK:            versionSK(record.Version),
		RecordID:      record.ID,
		DocumentID:    record.DocumentID,
		Version:       record.Version,
		Content:       record.Content,
		SavedBy:       record.SavedBy,
		SaveType:      string(record.SaveType),
		CommitMessage: record.CommitMessage,
		CreatedAt:     record.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return ports.VersionRecord{}, fmt.Errorf("failed to marshal version record: %w", err)
	}

	latest, err := attributevalue.MarshalMap(latestItem{
		PK:      docPK(record.DocumentID),
		SK:      "LATEST",
		Content: record.Content,
		Version: record.Version,
	})
	if err != nil {
		return ports.VersionRecord{}, fmt.Errorf("failed to marshal latest pointer: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(s.tableName), Item: item}},
			{Put: &types.Put{TableName: aws.String(s.tableName), Item: latest}},
		},
	})
	if err != nil {
		return ports.VersionRecord{}, fmt.Errorf("failed to append version %d: %w", record.Version, err)
	}
	return record, nil
}

// ListVersions returns up to limit records, newest first
func (s *DynamoDBVersionStore) ListVersions(ctx context.Context, documentID string, limit int) ([]ports.VersionRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: docPK(documentID)},
			":prefix": &types.AttributeValueMemberS{Value: "VERSION#"},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}

	records := make([]ports.VersionRecord, 0, len(result.Items))
	for _, raw := range result.Items {
		var item versionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal version record: %w", err)
		}
		createdAt, err := time.Parse(time.RFC3339, item.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created timestamp: %w", err)
		}
		records = append(records, ports.VersionRecord{
			ID:            item.RecordID,
			DocumentID:    item.DocumentID,
			Version:       item.Version,
			Content:       item.Content,
			SavedBy:       item.SavedBy,
			SaveType:      ports.SaveType(item.SaveType),
			CommitMessage: item.CommitMessage,
			CreatedAt:     createdAt,
		})
	}
	return records, nil
}
