package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
)

// AuthContextKey is the gin context key holding the authenticated user ID
const AuthContextKey = "user_id"

var errMissingSubject = errors.New("token has no user_id")

// Claims is the payload of bearer tokens minted by the identity service
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens
type Authenticator struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewAuthenticator builds an Authenticator from the auth settings
func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		parser: jwt.NewParser(opts...),
	}
}

// Issue signs a token for userID valid for ttl. Used by tests and tooling;
// production tokens come from the identity service.
func (a *Authenticator) Issue(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses raw and returns its claims
func (a *Authenticator) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, errMissingSubject
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's user ID under AuthContextKey
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" || strings.Contains(raw, " ") {
			abort(c, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := a.Verify(raw)
		switch {
		case errors.Is(err, errMissingSubject):
			abort(c, http.StatusUnauthorized, "Invalid token claims")
			return
		case err != nil:
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(AuthContextKey, claims.UserID)
		c.Next()
	}
}

// GetUserID returns the user ID stored by Middleware
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(AuthContextKey)
	return id, id != ""
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
