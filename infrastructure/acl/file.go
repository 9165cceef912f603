package acl

import (
	"encoding/json"
	"fmt"
	"os"

	"insightdocs-backend/application/ports"
)

// seedFile is the on-disk shape the registry is populated from at startup
type seedFile struct {
	Documents   map[string]string `json:"documents"` // documentID -> owning org
	Members     []seedMember      `json:"members"`
	Invitations []seedInvitation  `json:"invitations"`
}

type seedMember struct {
	UserID string     `json:"userId"`
	Org    string     `json:"org"`
	Role   ports.Role `json:"role"`
}

type seedInvitation struct {
	DocumentID string     `json:"documentId"`
	UserID     string     `json:"userId"`
	Role       ports.Role `json:"role"`
	Accepted   bool       `json:"accepted"`
}

// LoadRegistry builds a registry from a JSON seed file. This is how
// production deployments get their memberships and invitations; the
// registry mutators remain available for runtime changes.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read access file: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse access file: %w", err)
	}

	registry := NewRegistry()
	for documentID, org := range seed.Documents {
		registry.RegisterDocument(documentID, org)
	}
	for _, member := range seed.Members {
		if member.UserID == "" || member.Org == "" {
			return nil, fmt.Errorf("access file member entry missing userId or org")
		}
		registry.AddMember(member.UserID, member.Org, member.Role)
	}
	for _, inv := range seed.Invitations {
		if inv.DocumentID == "" || inv.UserID == "" {
			return nil, fmt.Errorf("access file invitation entry missing documentId or userId")
		}
		registry.Invite(inv.DocumentID, inv.UserID, inv.Role)
		if inv.Accepted {
			registry.AcceptInvitation(inv.DocumentID, inv.UserID)
		}
	}
	return registry, nil
}
