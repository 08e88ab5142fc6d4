package shared

import (
	"github.com/labcheck-cloud/internal/http/response"

	"github.com/gin-gonic/gin"
)

const userIDContextKey = "user_id"

// AuthUserID 读取认证中间件写入的用户ID。
// 中间件只写入 uint，任何其他形态都按未认证处理。
func AuthUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(userIDContextKey)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	id, ok := value.(uint)
	if !ok || id == 0 {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	return id, true
}
