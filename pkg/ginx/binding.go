package ginx

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// bindArgs 绑定请求参数到 args 结构体
// 顺序：Body（JSON 或 multipart/form）> URI 参数 > Query 参数，后者只补充前者未设置的字段
func bindArgs(ctx *gin.Context, args any) error {
	if ctx.Request.ContentLength != 0 {
		contentType := ctx.ContentType()
		switch {
		case strings.HasPrefix(contentType, "multipart/form-data"),
			strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
			if err := ctx.ShouldBind(args); err != nil {
				return err
			}
		default:
			if err := ctx.ShouldBindJSON(args); err != nil {
				return err
			}
		}
	}

	if len(ctx.Params) > 0 {
		if err := ctx.ShouldBindUri(args); err != nil {
			return err
		}
	}

	if ctx.Request.URL.RawQuery != "" {
		if err := ctx.ShouldBindQuery(args); err != nil {
			return err
		}
	}
	return nil
}
