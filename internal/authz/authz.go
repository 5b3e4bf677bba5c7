// Package authz enforces scope checks, workspace/project role checks, and
// cross-workspace isolation (spec §4.6, component C6).
package authz

import (
	"context"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
)

// Principal is the authenticated caller attached to a request context,
// derived from an access token JWT or a personal access token.
type Principal struct {
	UserID      string
	WorkspaceID string
	ClientID    string
	Scopes      map[string]bool
}

func NewPrincipal(userID, workspaceID, clientID string, scopes []string) *Principal {
	set := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		set[s] = true
	}
	return &Principal{UserID: userID, WorkspaceID: workspaceID, ClientID: clientID, Scopes: set}
}

// HasScope reports whether the principal's token carries scope.
func (p *Principal) HasScope(scope string) bool {
	return p.Scopes[scope]
}

// RequireScope returns Forbidden when scope is absent (spec §4.6).
func (p *Principal) RequireScope(scope string) error {
	if !p.HasScope(scope) {
		return apperrors.NewForbidden("authz: token missing required scope %q", scope)
	}
	return nil
}

type contextKey struct{}

// WithPrincipal attaches p to ctx for downstream handlers.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// PrincipalFrom extracts the Principal attached by WithPrincipal.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok
}

// Checker resolves workspace/project roles and enforces cross-workspace
// isolation against a Store.
type Checker struct {
	store entitystore.Store
}

func NewChecker(store entitystore.Store) *Checker {
	return &Checker{store: store}
}

// RequireWorkspaceRole loads the principal's membership in workspaceID and
// returns Forbidden if it falls short of min, NotFound if absent.
func (c *Checker) RequireWorkspaceRole(ctx context.Context, p *Principal, workspaceID string, min domain.WorkspaceRole) error {
	if err := c.RequireSameWorkspace(p, workspaceID); err != nil {
		return err
	}
	m, err := c.store.GetWorkspaceMembership(ctx, workspaceID, p.UserID)
	if err != nil {
		return err
	}
	if !m.Role.AtLeast(min) {
		return apperrors.NewForbidden("authz: user %s lacks required workspace role in %s", p.UserID, workspaceID)
	}
	return nil
}

// RequireProjectRole loads the principal's membership in projectID
// (belonging to workspaceID) and returns Forbidden if it falls short of
// min. A workspace Owner implicitly satisfies any project role (spec
// §4.6); workspace Admins do not and still need an explicit project
// membership row.
func (c *Checker) RequireProjectRole(ctx context.Context, p *Principal, workspaceID, projectID string, min domain.ProjectRole) error {
	if err := c.RequireSameWorkspace(p, workspaceID); err != nil {
		return err
	}
	if wm, err := c.store.GetWorkspaceMembership(ctx, workspaceID, p.UserID); err == nil && wm.Role == domain.WorkspaceOwner {
		return nil
	}
	m, err := c.store.GetProjectMembership(ctx, projectID, p.UserID)
	if err != nil {
		return err
	}
	if !m.Role.AtLeast(min) {
		return apperrors.NewForbidden("authz: user %s lacks required project role in %s", p.UserID, projectID)
	}
	return nil
}

// RequireSameWorkspace enforces that a token minted for one workspace
// (the "tid" claim) can never act against another (spec §4.6, I9).
func (c *Checker) RequireSameWorkspace(p *Principal, workspaceID string) error {
	if p.WorkspaceID != "" && p.WorkspaceID != workspaceID {
		return apperrors.NewCrossWorkspace("authz: token scoped to workspace %s cannot act on workspace %s", p.WorkspaceID, workspaceID)
	}
	return nil
}
