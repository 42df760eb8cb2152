package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/diskd/pkg/apierror"
)

// renderResponse 渲染成功响应
func renderResponse(ctx *gin.Context, response any) {
	if response == nil {
		ctx.Status(http.StatusNoContent)
		return
	}

	switch v := response.(type) {
	case string:
		ctx.String(http.StatusOK, v)
	case int, int64, uint64, float64, bool:
		ctx.JSON(http.StatusOK, gin.H{"value": v})
	default:
		ctx.JSON(http.StatusOK, response)
	}
}

// renderError 渲染错误响应
// *apierror.Error 使用自身的 HTTPStatus，其它错误使用 statusCode
func renderError(ctx *gin.Context, statusCode int, err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatus > 0 {
			statusCode = apiErr.HTTPStatus
		}
		ctx.JSON(statusCode, apierror.NewErrorResponse(RequestID(ctx), apiErr))
		return
	}

	var errResp *apierror.ErrorResponse
	if errors.As(err, &errResp) {
		if len(errResp.Errors) > 0 && errResp.Errors[0].HTTPStatus > 0 {
			statusCode = errResp.Errors[0].HTTPStatus
		}
		ctx.JSON(statusCode, errResp)
		return
	}

	ctx.JSON(statusCode, gin.H{"error": err.Error(), "requestID": RequestID(ctx)})
}

// AbortWithError 渲染错误响应并终止后续 handler，供不经过 Adapt 的 handler 使用
func AbortWithError(ctx *gin.Context, err error) {
	renderError(ctx, http.StatusInternalServerError, err)
	ctx.Abort()
}
