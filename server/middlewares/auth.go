package middlewares

import (
	"crypto/subtle"
	"strings"

	"github.com/OpenListTeam/tgdrive/server/common"
	"github.com/gin-gonic/gin"
)

// AdminToken only lets requests through whose Authorization header carries
// token, with or without a Bearer prefix.
func AdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			common.ErrorStrResp(c, "admin token invalid", 401)
			return
		}
		c.Next()
	}
}
