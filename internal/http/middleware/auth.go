package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/skooly-backend/internal/platform/ctxutil"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

// AuthMiddleware resolves the acting user from an HS256 bearer token issued
// by the identity provider. The subject claim is the user id.
type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
	issuer string
}

func NewAuthMiddleware(log *logger.Logger, secret, issuer string) *AuthMiddleware {
	return &AuthMiddleware{
		log:    log.With("Middleware", "AuthMiddleware"),
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		rd, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": err.Error(), "code": "unauthorized"},
			})
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractTokenFromAll(c); tokenString != "" {
			if rd, err := am.parse(tokenString); err == nil {
				c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
			}
		}
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*ctxutil.RequestData, error) {
	if len(am.secret) == 0 {
		return nil, errors.New("authentication is not configured")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if am.issuer != "" {
		opts = append(opts, jwt.WithIssuer(am.issuer))
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return nil, errors.New("invalid token: missing subject")
	}
	name, _ := claims["name"].(string)
	return &ctxutil.RequestData{
		UserID:      strings.TrimSpace(sub),
		DisplayName: strings.TrimSpace(name),
		TokenString: tokenString,
	}, nil
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
