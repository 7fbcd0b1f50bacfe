package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"backend/models"
	"backend/utils"
	"backend/workflow"

	"github.com/gin-gonic/gin"
)

const (
	contextActorKey = "actor"
	contextUserKey  = "user"
)

// selectUserByIDSQL resolves the acting principal for a validated token.
const selectUserByIDSQL = `
	SELECT id, email, first_name, last_name, role_name
	FROM users
	WHERE id = $1`

// RequireIdentity resolves the session token into a (user, role, name)
// identity and stores it on the request context. Token issuance and password
// handling live with the identity provider; this middleware only validates
// and resolves.
func RequireIdentity(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing token"})
			return
		}

		parsed, err := utils.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		userID, err := utils.UserIDFromToken(parsed)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		var user models.User
		err = db.QueryRow(selectUserByIDSQL, userID).Scan(
			&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.RoleName)
		if err == sql.ErrNoRows {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user: " + err.Error()})
			return
		}

		c.Set(contextUserKey, user)
		c.Set(contextActorKey, workflow.Actor{
			UserID: user.ID,
			Name:   user.DisplayName(),
			Role:   user.RoleName,
		})
		c.Next()
	}
}

// CurrentActor returns the identity resolved by RequireIdentity.
func CurrentActor(c *gin.Context) (workflow.Actor, bool) {
	v, ok := c.Get(contextActorKey)
	if !ok {
		return workflow.Actor{}, false
	}
	actor, ok := v.(workflow.Actor)
	return actor, ok
}
