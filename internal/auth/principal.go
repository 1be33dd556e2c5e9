package auth

// Well-known sandbox identifiers. The matching user and workspace rows are
// seeded at startup; the principal itself is synthesized per request and
// never persisted.
const (
	SandboxUserID      = "00000000-0000-4000-8000-000000000001"
	SandboxWorkspaceID = "00000000-0000-4000-8000-000000000002"
)

// Principal is the authenticated identity attached to a request. It exists
// only for the request's duration, constructed from verified token claims or
// synthesized in sandbox mode.
type Principal struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email,omitempty"`
	Phone        string                 `json:"phone,omitempty"`
	Role         string                 `json:"role"`
	Audience     string                 `json:"aud"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

func SandboxPrincipal() *Principal {
	return &Principal{
		ID:           SandboxUserID,
		Email:        "sandbox@testing.local",
		Role:         "authenticated",
		Audience:     "authenticated",
		AppMetadata:  map[string]interface{}{"workspace_id": SandboxWorkspaceID},
		UserMetadata: map[string]interface{}{"display_name": "Sandbox User"},
	}
}
