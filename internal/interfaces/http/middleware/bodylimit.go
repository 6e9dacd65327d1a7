package middleware

import (
	"fmt"
	"net/http"

	"github.com/erp/marketsync/internal/infrastructure/logger"
	"github.com/erp/marketsync/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Body limits of the route groups
const (
	// MaxBatchBodySize fits a full 5000-item pricing batch
	MaxBatchBodySize = 8 << 20
	// MaxUploadBodySize fits a 10MB workbook plus multipart framing
	MaxUploadBodySize = 11 << 20
)

// BodyLimit rejects requests whose declared length exceeds maxBytes and caps
// the reader for bodies sent without a length. Requests without a body pass.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	message := fmt.Sprintf("request body exceeds %d bytes", maxBytes)
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				message,
				logger.GetRequestID(c.Request.Context()),
			))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
