// internal/middleware/helpers.go
package middleware

import (
	"rayslaund-service/internal/domain/user"

	"github.com/gin-gonic/gin"
)

// MustGetIdentityID gets identity ID from context or panics
func MustGetIdentityID(c *gin.Context) string {
	identityID, exists := GetIdentityID(c)
	if !exists {
		panic("identity_id not found in context")
	}
	return identityID
}

// MustGetJTI gets JTI from context or panics
func MustGetJTI(c *gin.Context) string {
	jti, exists := GetJTI(c)
	if !exists {
		panic("jti not found in context")
	}
	return jti
}

// Requester builds the acting user from the verified token claims. Handlers
// pass it to services for authorization and attribution.
func Requester(c *gin.Context) *user.User {
	role, _ := GetRole(c)
	fullName, _ := c.Get("full_name")
	name, _ := fullName.(string)

	return &user.User{
		ID:       MustGetIdentityID(c),
		FullName: name,
		Role:     user.Role(role),
	}
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("identity_id")
	return exists
}

// IsOperator checks if user is staff or admin
func IsOperator(c *gin.Context) bool {
	role, _ := GetRole(c)
	return role == "staff" || role == "admin"
}

// IsAdmin checks if user is an admin
func IsAdmin(c *gin.Context) bool {
	role, _ := GetRole(c)
	return role == "admin"
}
