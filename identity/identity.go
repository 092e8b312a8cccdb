package identity

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bladi23/ImportadoraSonib/models"
)

// The auth layer in front of this service validates credentials and forwards
// the authenticated user id in this header. Both ids are opaque strings here.
const (
	userIDHeader  = "X-User-ID"
	sessionCookie = "cart_session"

	ownerContextKey = "cartOwner"
	cookieMaxAge    = 30 * 24 * 60 * 60
)

// Middleware resolves an OwnerKey for every request: the authenticated user id
// when present, otherwise an anonymous session id lazily created and persisted
// as a cookie. Authenticated identity always wins over an incidental session
// cookie on the same request.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ownerContextKey, resolve(c))
		c.Next()
	}
}

func resolve(c *gin.Context) models.OwnerKey {
	if userID := c.GetHeader(userIDHeader); userID != "" {
		return models.UserKey(userID)
	}

	sid, err := c.Cookie(sessionCookie)
	if err != nil || sid == "" {
		sid = uuid.New().String()
		c.SetCookie(sessionCookie, sid, cookieMaxAge, "/", "", false, true)
	}
	return models.SessionKey(sid)
}

// Owner returns the OwnerKey resolved for this request. It is the zero value
// if Middleware was not installed.
func Owner(c *gin.Context) models.OwnerKey {
	if v, ok := c.Get(ownerContextKey); ok {
		if key, ok := v.(models.OwnerKey); ok {
			return key
		}
	}
	return models.OwnerKey{}
}
