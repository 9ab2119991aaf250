package middleware

import (
	"errors"
	"net/http"
	"strings"

	"billing/internal/logger"
	"billing/internal/service"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Staff roles carried in the token's "role" claim
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

var (
	ErrMissingToken = errors.New("authorization is missing")
	ErrTokenFormat  = errors.New("invalid authorization format, expected 'Bearer <token>'")
)

// Authenticator validates HS256 access tokens issued by the storefront backend
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// ParseToken verifies the signature and returns the token claims
func (a *Authenticator) ParseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// tokenFromRequest reads the access_token cookie, then the Authorization header
func tokenFromRequest(c *gin.Context) (string, error) {
	if tokenString, err := c.Cookie("access_token"); err == nil && tokenString != "" {
		return tokenString, nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrTokenFormat
	}
	return parts[1], nil
}

// RequireRole validates the JWT and checks the caller's role is one of allowedRoles.
// The subject becomes the acting user on the request context.
func (a *Authenticator) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		claims, err := a.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		userRole, ok := claims["role"].(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
			return
		}
		if !hasRole(userRole, allowedRoles) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		userID, _ := claims.GetSubject()
		c.Set("userID", userID)
		c.Set("userRole", userRole)

		ctx := service.WithActor(c.Request.Context(), userID)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("user_id", userID)))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the authenticated caller holds the admin role
func IsAdmin(c *gin.Context) bool {
	return c.GetString("userRole") == RoleAdmin
}
