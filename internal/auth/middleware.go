package auth

import (
	"net/http"
	"time"

	ginjwt "github.com/appleboy/gin-jwt/v2"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const identityKey = "identity"

type MiddlewareConfig struct {
	Realm  string
	Secret []byte
	TTL    time.Duration
	// DevLogin enables a login handler that trusts the posted identity.
	DevLogin bool
}

type devLogin struct {
	UserID string `json:"userId" binding:"required"`
	Email  string `json:"email"`
}

// NewMiddleware builds the REST bearer middleware over the same tokens the
// socket handshake accepts.
func NewMiddleware(cfg MiddlewareConfig) (*ginjwt.GinJWTMiddleware, error) {
	mw := &ginjwt.GinJWTMiddleware{
		Realm:         cfg.Realm,
		Key:           cfg.Secret,
		Timeout:       cfg.TTL,
		MaxRefresh:    cfg.TTL,
		IdentityKey:   identityKey,
		TokenLookup:   "header: Authorization, query: token",
		TokenHeadName: "Bearer",
		PayloadFunc: func(data interface{}) ginjwt.MapClaims {
			if id, ok := data.(domain.Identity); ok {
				return ginjwt.MapClaims{ClaimUserID: string(id.UserID), ClaimEmail: id.Email}
			}
			return ginjwt.MapClaims{}
		},
		IdentityHandler: func(c *gin.Context) interface{} {
			id, err := IdentityFromClaims(ginjwt.ExtractClaims(c))
			if err != nil {
				return nil
			}
			return id
		},
		Authorizator: func(data interface{}, _ *gin.Context) bool {
			_, ok := data.(domain.Identity)
			return ok
		},
		Authenticator: func(c *gin.Context) (interface{}, error) {
			if !cfg.DevLogin {
				return nil, ginjwt.ErrFailedAuthentication
			}
			var req devLogin
			if err := c.ShouldBindJSON(&req); err != nil {
				return nil, ginjwt.ErrMissingLoginValues
			}
			id, err := domain.NewIdentity(req.UserID, req.Email)
			if err != nil {
				return nil, ginjwt.ErrFailedAuthentication
			}
			log.Info().Str("module", "auth").Str("user", string(id.UserID)).Msg("dev login")
			return id, nil
		},
		Unauthorized: func(c *gin.Context, code int, message string) {
			kind := domain.KindUnauthenticated
			if code == http.StatusForbidden {
				kind = domain.KindForbidden
			}
			c.JSON(code, gin.H{
				"success": false,
				"error":   gin.H{"message": message, "code": kind.String()},
			})
		},
	}
	return ginjwt.New(mw)
}

// IdentityFrom returns the caller set by the middleware.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
