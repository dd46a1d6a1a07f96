package api

import (
	"context"
	"net/http"

	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/gin-gonic/gin"
)

const headerRequestID = "X-Request-ID"

// RequestIDMiddleware stamps every request with a request id, generating
// one when the caller didn't supply it, and makes it available to
// downstream handlers via types.GetRequestID.
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(headerRequestID)
	if requestID == "" {
		requestID = types.GenerateID()
	}

	ctx := context.WithValue(c.Request.Context(), types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(headerRequestID, requestID)
	c.Next()
}

// CORSMiddleware allows the batch-run endpoint to be called from an
// operator dashboard on a different origin.
func CORSMiddleware(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "*")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusOK)
		return
	}
	c.Next()
}
