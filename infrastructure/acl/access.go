// Package acl answers join-time access questions: organization membership
// and accepted cross-organization invitations. The registry is in-memory
// and seeded at startup or through the admin surface; lookups are cheap
// enough to run synchronously on every join.
package acl

import (
	"context"
	"sync"

	"insightdocs-backend/application/ports"
)

// invitation is one cross-organization share of a document
type invitation struct {
	role     ports.Role
	accepted bool
}

// Registry is an in-memory access checker
type Registry struct {
	mu          sync.RWMutex
	documentOrg map[string]string                // documentID -> owning org
	memberOrg   map[string]string                // userID -> org
	memberRole  map[string]ports.Role            // userID -> role inside their org
	invitations map[string]map[string]invitation // documentID -> userID -> invitation
}

// NewRegistry creates an empty access registry
func NewRegistry() *Registry {
	return &Registry{
		documentOrg: make(map[string]string),
		memberOrg:   make(map[string]string),
		memberRole:  make(map[string]ports.Role),
		invitations: make(map[string]map[string]invitation),
	}
}

// RegisterDocument records which organization owns a document
func (r *Registry) RegisterDocument(documentID, orgID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documentOrg[documentID] = orgID
}

// AddMember records a user's organization and role
func (r *Registry) AddMember(userID, orgID string, role ports.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memberOrg[userID] = orgID
	r.memberRole[userID] = role
}

// Invite shares a document with a user outside the owning organization.
// The invitation grants nothing until accepted.
func (r *Registry) Invite(documentID, userID string, role ports.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.invitations[documentID] == nil {
		r.invitations[documentID] = make(map[string]invitation)
	}
	r.invitations[documentID][userID] = invitation{role: role}
}

// AcceptInvitation marks a pending invitation as accepted
func (r *Registry) AcceptInvitation(documentID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[documentID][userID]
	if !ok {
		return false
	}
	inv.accepted = true
	r.invitations[documentID][userID] = inv
	return true
}

// CanAccess allows members of the owning organization, and outside users
// holding an accepted invitation. Everyone else is denied; the caller
// presents denial as "not found" so document existence leaks nothing.
func (r *Registry) CanAccess(_ context.Context, userID, documentID string) (ports.AccessDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orgID, known := r.documentOrg[documentID]
	if !known {
		return ports.AccessDecision{}, nil
	}

	if r.memberOrg[userID] == orgID {
		role := r.memberRole[userID]
		if role == "" {
			role = ports.RoleViewer
		}
		return ports.AccessDecision{Allowed: true, Role: role}, nil
	}

	if inv, ok := r.invitations[documentID][userID]; ok && inv.accepted {
		return ports.AccessDecision{Allowed: true, Role: inv.role}, nil
	}
	return ports.AccessDecision{}, nil
}

// AllowAll grants every user owner access to every document. Development
// only; production wires the registry.
type AllowAll struct{}

// CanAccess always allows
func (AllowAll) CanAccess(_ context.Context, _, _ string) (ports.AccessDecision, error) {
	return ports.AccessDecision{Allowed: true, Role: ports.RoleOwner}, nil
}
