package kernel

import "github.com/Abraxas-365/talentledger/pkg/iam/scopes"

// AuthContext is the caller identity resolved by the auth middleware
type AuthContext struct {
	UserID  *UserID  `json:"user_id,omitempty"`
	Email   string   `json:"email,omitempty"`
	Name    string   `json:"name,omitempty"`
	Scopes  []string `json:"scopes"`
	Service bool     `json:"service"`
}

// IsValid reports whether the context identifies somebody
func (a *AuthContext) IsValid() bool {
	return a.UserID != nil && !a.UserID.IsEmpty()
}

// Actor names the caller for audit columns
func (a *AuthContext) Actor() string {
	if a.Email != "" {
		return a.Email
	}
	if a.UserID != nil {
		return a.UserID.String()
	}
	return "system"
}

// HasScope checks exact, global and "resource:*" wildcard grants
func (a *AuthContext) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if scopes.Matches(s, scope) {
			return true
		}
	}
	return false
}

func (a *AuthContext) HasAnyScope(required ...string) bool {
	for _, s := range required {
		if a.HasScope(s) {
			return true
		}
	}
	return false
}

func (a *AuthContext) HasAllScopes(required ...string) bool {
	for _, s := range required {
		if !a.HasScope(s) {
			return false
		}
	}
	return true
}
