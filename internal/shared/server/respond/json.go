package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload as a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes payload with 200 OK. Assessment reports and discovery
// listings both go out through here.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}
