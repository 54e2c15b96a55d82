// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims
type Claims struct {
	IdentityID     string `json:"identity_id"`
	Role           string `json:"role,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	SessionPurpose string `json:"session_purpose"` // access
	jwt.RegisteredClaims
}

// HasRole checks if the claims carry a specific role
func (c *Claims) HasRole(role string) bool {
	return c.Role == role
}

// IsOperator checks if the claims belong to staff or admin
func (c *Claims) IsOperator() bool {
	return c.Role == "staff" || c.Role == "admin"
}

// IsAdmin checks if user is an admin
func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}

	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}

	return false
}
