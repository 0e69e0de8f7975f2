package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"cinehub/internal/apperr"
	"cinehub/internal/middleware"
	"cinehub/internal/models"
)

// Identities resolves the caller of a request. Legacy clients send their
// userUID in the body; TrustBodyUID decides whether that is honoured for
// requests without a token or session.
type Identities struct {
	TrustBodyUID bool
}

// caller returns the identity a mutation runs as. A verified identity always
// wins, and a body userUID that contradicts it is refused.
func (i Identities) caller(c *gin.Context, bodyUID int64, username string) (models.CallerIdentity, error) {
	id, verified := middleware.Caller(c)
	if verified {
		if bodyUID != 0 && bodyUID != id.UserUID {
			return id, apperr.Forbidden("userUID does not match the signed-in user")
		}
		return id, nil
	}
	if i.TrustBodyUID && bodyUID > 0 {
		return models.CallerIdentity{UserUID: bodyUID, Username: username}, nil
	}
	return models.Anonymous(), nil
}

// bind decodes an optional JSON body. An empty body leaves dst untouched.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return middleware.BindingError(err)
	}
	return nil
}

// fail hands err to the error middleware.
func fail(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

func respondOK(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": message})
}
