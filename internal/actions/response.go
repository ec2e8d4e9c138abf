package actions

import (
	"github.com/gin-gonic/gin"

	"outreach_backend/platform/apperr"
)

// respondError maps a domain error to its HTTP status and a JSON body.
func respondError(c *gin.Context, err error) {
	status := 500
	if appErr, ok := err.(*apperr.Error); ok {
		status = appErr.HTTPStatus()
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
