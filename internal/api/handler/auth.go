package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/api/middleware"
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/models"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "kiitcms"
	tokenTTL    = 72 * time.Hour

	roleContextKey = "roleContext"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is what the identity provider signs for a caller.
type Claims struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	RollNo   string      `json:"roll_no,omitempty"`
	Role     models.Role `json:"role"`
	Verified bool        `json:"verified"`
	jwt.RegisteredClaims
}

// Authenticator verifies bearer tokens and resolves the caller's RoleContext.
type Authenticator struct {
	Secret   []byte
	Resolver *access.Resolver
	Now      func() time.Time
}

func NewAuthenticator(secret string, resolver *access.Resolver) *Authenticator {
	return &Authenticator{Secret: []byte(secret), Resolver: resolver, Now: time.Now}
}

// IssueToken signs a token for id.
func (a *Authenticator) IssueToken(id access.Identity) (string, error) {
	now := a.Now()
	claims := Claims{
		Email:    strings.ToLower(id.Email),
		Name:     id.DisplayName,
		RollNo:   id.RollNo,
		Role:     id.Role,
		Verified: id.Verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
}

// Parse verifies raw and returns the identity it carries.
func (a *Authenticator) Parse(raw string) (access.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return a.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.Now),
	)
	if err != nil {
		return access.Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return access.Identity{}, ErrInvalidToken
	}
	return access.Identity{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		RollNo:      claims.RollNo,
		Role:        claims.Role,
		Verified:    claims.Verified,
	}, nil
}

// Middleware rejects unauthenticated requests and stores the resolved
// RoleContext. Browsers cannot set headers on a websocket handshake, so a
// "token" query parameter is accepted as well.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing", "kind": "unauthenticated"})
			return
		}
		id, err := a.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "kind": "unauthenticated"})
			return
		}

		rc, err := a.Resolver.Resolve(c.Request.Context(), id)
		if err != nil {
			c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err), "kind": apperr.KindOf(err)})
			return
		}

		c.Set(middleware.UserIDKey, id.ID)
		c.Set(roleContextKey, rc)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

// RoleContextFrom returns the context stored by Middleware.
func RoleContextFrom(c *gin.Context) access.RoleContext {
	v, _ := c.Get(roleContextKey)
	rc, _ := v.(access.RoleContext)
	return rc
}
