package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: status, Message: message})
}

// respondInternal logs the unexpected error and returns an opaque 500. Domain
// errors are mapped before reaching here; anything left is a storage or
// programming failure the caller cannot act on.
func respondInternal(c *gin.Context, err error) {
	zctx.From(c.Request.Context()).Error("Request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	respondError(c, http.StatusInternalServerError, "internal error")
}
