package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"cinehub/internal/apperr"
	"cinehub/internal/auth"
	"cinehub/internal/models"
)

const (
	IdentityKey = "identity"
	VerifiedKey = "identity_verified"

	SessionName = "cinehub_session"

	sessionUserUID  = "user_uid"
	sessionUsername = "username"
	sessionUserTier = "user_tier"
)

// Identity resolves the caller from a bearer token or, failing that, from
// the cookie session. Requests with neither continue as anonymous. A bearer
// token that does not verify is rejected.
func Identity(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				c.Error(apperr.Unauthorized("Authorization header must be a bearer token"))
				c.Abort()
				return
			}
			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				c.Error(apperr.Wrap(apperr.KindUnauthorized, "Invalid or expired token", err))
				c.Abort()
				return
			}
			setIdentity(c, claims.Identity())
			c.Next()
			return
		}

		if _, ok := c.Get(sessions.DefaultKey); ok {
			session := sessions.Default(c)
			if uid, ok := session.Get(sessionUserUID).(int64); ok && uid != 0 {
				username, _ := session.Get(sessionUsername).(string)
				tier, _ := session.Get(sessionUserTier).(string)
				setIdentity(c, models.CallerIdentity{
					UserUID:  uid,
					Username: username,
					IsAdmin:  tier == models.AdminTier,
				})
			}
		}
		c.Next()
	}
}

func setIdentity(c *gin.Context, id models.CallerIdentity) {
	c.Set(IdentityKey, id)
	c.Set(VerifiedKey, true)
}

// Caller returns the identity resolved by Identity and whether it was
// verified. Unverified callers are anonymous.
func Caller(c *gin.Context) (models.CallerIdentity, bool) {
	id, ok := c.Get(IdentityKey)
	if !ok {
		return models.Anonymous(), false
	}
	caller, _ := id.(models.CallerIdentity)
	return caller, c.GetBool(VerifiedKey)
}

// AuthRequired rejects anonymous requests.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if caller, _ := Caller(c); !caller.Authenticated() {
			c.Error(apperr.Unauthorized("Sign in first"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Login stores the user in the cookie session.
func Login(c *gin.Context, u models.User) error {
	session := sessions.Default(c)
	session.Set(sessionUserUID, u.UserUID)
	session.Set(sessionUsername, u.Username)
	session.Set(sessionUserTier, u.UserTier)
	return session.Save()
}

func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}
