package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/botpanel/botpanel/src/panel/data"
)

const (
	ctxBotID   = "botId"
	ctxTokenID = "tokenId"
)

func issueToken(botID string, secret []byte, ttl time.Duration) (token, tokenID string, err error) {
	tokenID = uuid.NewString()
	claims := jwt.MapClaims{
		"botId": botID,
		"jti":   tokenID,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	return token, tokenID, err
}

// SessionMiddleware resolves the bot identity bound to the caller's bearer
// token. Missing, invalid or revoked tokens are rejected here, before any
// registry call is attempted.
func SessionMiddleware(secret []byte, sessions data.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil })
		if err != nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		botID, _ := claims["botId"].(string)
		tokenID, _ := claims["jti"].(string)
		bound, ok := sessions.Lookup(c.Request.Context(), tokenID)
		if !ok || bound != botID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.Set(ctxBotID, botID)
		c.Set(ctxTokenID, tokenID)
		c.Next()
	}
}
