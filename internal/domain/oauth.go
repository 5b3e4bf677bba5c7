package domain

import "time"

type ClientType string

const (
	ClientPublic       ClientType = "Public"
	ClientConfidential ClientType = "Confidential"
)

type OAuthApp struct {
	ID               string         `db:"id"`
	WorkspaceID      string         `db:"workspace_id"`
	Name             string         `db:"name"`
	Description      string         `db:"description"`
	ClientType       ClientType     `db:"client_type"`
	ClientID         string         `db:"client_id"`
	ClientSecretHash string         `db:"client_secret_hash"`
	RedirectURIs     []string       `db:"redirect_uris"`
	AllowedScopes    []string       `db:"allowed_scopes"`
	IsEnabled        bool           `db:"is_enabled"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        *time.Time     `db:"updated_at"`
	CreatedByUserID  string         `db:"created_by_user_id"`
}

type CodeChallengeMethod string

const (
	ChallengeS256  CodeChallengeMethod = "S256"
	ChallengePlain CodeChallengeMethod = "plain"
)

type AuthorizationCode struct {
	ID                  string              `db:"id"`
	CodeHash            string              `db:"code_hash"`
	OAuthAppID          string              `db:"oauth_app_id"`
	UserID              string              `db:"user_id"`
	WorkspaceID         string              `db:"workspace_id"`
	Scopes              []string            `db:"scopes"`
	RedirectURI         string              `db:"redirect_uri"`
	CodeChallenge       string              `db:"code_challenge"`
	CodeChallengeMethod CodeChallengeMethod `db:"code_challenge_method"`
	CreatedAt           time.Time           `db:"created_at"`
	ExpiresAt           time.Time           `db:"expires_at"`
	IsUsed              bool                `db:"is_used"`
	UsedAt              *time.Time          `db:"used_at"`
}

type RefreshToken struct {
	ID                string     `db:"id"`
	TokenHash         string     `db:"token_hash"`
	OAuthAppID        string     `db:"oauth_app_id"`
	UserID            string     `db:"user_id"`
	WorkspaceID       string     `db:"workspace_id"`
	Scopes            []string   `db:"scopes"`
	CreatedAt         time.Time  `db:"created_at"`
	ExpiresAt         time.Time  `db:"expires_at"`
	IsRevoked         bool       `db:"is_revoked"`
	RevokedAt         *time.Time `db:"revoked_at"`
	RevokedReason     string     `db:"revoked_reason"`
	ParentTokenID     string     `db:"parent_token_id"`
	ReplacedByTokenID string     `db:"replaced_by_token_id"`
	TokenFamilyID     string     `db:"token_family_id"`
	IPAddress         string     `db:"ip_address"`
	UserAgent         string     `db:"user_agent"`
}

type PersonalAccessToken struct {
	ID                string     `db:"id"`
	TokenHash         string     `db:"token_hash"`
	TokenPrefix       string     `db:"token_prefix"`
	UserID            string     `db:"user_id"`
	WorkspaceID       string     `db:"workspace_id"`
	Name              string     `db:"name"`
	Description       string     `db:"description"`
	Scopes            []string   `db:"scopes"`
	CreatedAt         time.Time  `db:"created_at"`
	ExpiresAt         time.Time  `db:"expires_at"`
	LastUsedAt        *time.Time `db:"last_used_at"`
	LastUsedIPAddress string     `db:"last_used_ip_address"`
	IsRevoked         bool       `db:"is_revoked"`
	RevokedAt         *time.Time `db:"revoked_at"`
	RevokedReason     string     `db:"revoked_reason"`
	CreatedFromIP     string     `db:"created_from_ip"`
}

type AuditLog struct {
	ID          string    `db:"id"`
	SubjectID   string    `db:"subject_id"`
	EventType   string    `db:"event_type"`
	ActorUserID string    `db:"actor_user_id"`
	Timestamp   time.Time `db:"timestamp"`
	Details     string    `db:"details"`
	IPAddress   string    `db:"ip_address"`
	UserAgent   string    `db:"user_agent"`
}

// Revocation reasons (spec §4.4).
const (
	ReasonTokenRotation = "token_rotation"
	ReasonTokenReuse    = "token_reuse_detected"
)

// Scopes (spec §6, closed set).
const (
	ScopeWorkspacesRead  = "workspaces:read"
	ScopeWorkspacesWrite = "workspaces:write"
	ScopeProjectsRead    = "projects:read"
	ScopeProjectsWrite   = "projects:write"
	ScopeFilesRead       = "files:read"
	ScopeFilesWrite      = "files:write"
	ScopeModelsRead      = "models:read"
	ScopeModelsWrite     = "models:write"
	ScopeProcessingRead  = "processing:read"
	ScopeProcessingWrite = "processing:write"
	ScopeOAuthAppsRead   = "oauth_apps:read"
	ScopeOAuthAppsWrite  = "oauth_apps:write"
	ScopeOAuthAppsAdmin  = "oauth_apps:admin"
	ScopePatsRead        = "pats:read"
	ScopePatsWrite       = "pats:write"
	ScopePatsAdmin       = "pats:admin"
)

// AllScopes is the closed set accepted at OAuthApp/PAT creation time.
var AllScopes = map[string]bool{
	ScopeWorkspacesRead: true, ScopeWorkspacesWrite: true,
	ScopeProjectsRead: true, ScopeProjectsWrite: true,
	ScopeFilesRead: true, ScopeFilesWrite: true,
	ScopeModelsRead: true, ScopeModelsWrite: true,
	ScopeProcessingRead: true, ScopeProcessingWrite: true,
	ScopeOAuthAppsRead: true, ScopeOAuthAppsWrite: true, ScopeOAuthAppsAdmin: true,
	ScopePatsRead: true, ScopePatsWrite: true, ScopePatsAdmin: true,
}
