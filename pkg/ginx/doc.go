// Package ginx 提供 gin 的 handler 适配器，负责参数绑定、校验和 JSON 响应渲染
//
// 支持的 handler 签名：
//
//	// Adapt5: 有参数，有返回值，有 error
//	func(c *gin.Context, args *Args) (resp, error)
//
//	// Adapt4: 有参数，只有 error（成功返回 204）
//	func(c *gin.Context, args *Args) error
//
//	// Adapt3: 无参数，有返回值，有 error
//	func(c *gin.Context) (resp, error)
//
// 参数结构体可以实现 IsValid() error，绑定后自动调用。
// handler 返回 *apierror.Error 时按其 HTTPStatus 渲染，响应体带 requestID。
//
// 使用示例：
//
//	router := gin.New()
//	router.Use(ginx.RequestLogger(logger))
//	router.POST("/api/start-format", ginx.Adapt5(func(c *gin.Context, args *StartFormatRequest) (*StartTaskResponse, error) {
//	    return svc.StartFormat(c, args)
//	}))
package ginx
