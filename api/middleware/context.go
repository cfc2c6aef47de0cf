package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/makedealcrm/dealstack/internal/utils"
)

// CustomContextMiddleware propagates the acting user from request
// headers into the request context
func CustomContextMiddleware(appSource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		customContext := &utils.CustomContext{
			AppSource: appSource,
			UserId:    c.GetHeader("X-USER-ID"),
			UserEmail: c.GetHeader("X-USER-EMAIL"),
		}
		ctx := utils.WithCustomContext(c.Request.Context(), customContext)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
