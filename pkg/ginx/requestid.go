package ginx

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeaderRequestID 请求 ID 头
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "ginx.request_id"

// RequestLogger 为每个请求分配 request_id，并把带 request_id 的 logger 放进请求 context
// 之后 handler 中的 zerolog.Ctx(ctx) 都会带上该字段
func RequestLogger(base zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestID := ctx.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx.Set(requestIDKey, requestID)
		ctx.Header(HeaderRequestID, requestID)

		logger := base.With().Str("request_id", requestID).Logger()
		ctx.Request = ctx.Request.WithContext(logger.WithContext(ctx.Request.Context()))

		ctx.Next()

		logger.Debug().
			Str("method", ctx.Request.Method).
			Str("path", ctx.FullPath()).
			Int("status", ctx.Writer.Status()).
			Msg("Request handled")
	}
}

// RequestID 返回当前请求的 request_id，未经过 RequestLogger 时为空
func RequestID(ctx *gin.Context) string {
	return ctx.GetString(requestIDKey)
}
