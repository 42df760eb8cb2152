// Package apierror 定义 diskd 对外暴露的错误类型
//
// 服务层返回 *apierror.Error，API 层（pkg/ginx）根据 HTTPStatus 渲染为：
//
//	{"errors":[{"code":"TaskNotFound","message":"..."}],"requestID":"..."}
//
// 判断错误类型使用 errors.Is，按 Code 比较：
//
//	if errors.Is(err, apierror.ErrTaskNotFound) { ... }
//
// 包装预定义错误：
//
//	return apierror.WrapError(apierror.ErrInternalError, "query task", err)
package apierror
