package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/pkg/ginx"
	"github.com/rs/zerolog"
)

// AutoModeInterface 定义自动模式开关的接口
type AutoModeInterface interface {
	Status() *entity.AutoModeStatus
	Toggle(ctx context.Context) bool
	SetEnabled(ctx context.Context, enabled bool)
}

// AutoMode 自动模式 API
type AutoMode struct {
	controller AutoModeInterface
}

// NewAutoMode 创建自动模式 API
func NewAutoMode(controller AutoModeInterface) *AutoMode {
	return &AutoMode{
		controller: controller,
	}
}

// RegisterRoutes 注册路由
func (a *AutoMode) RegisterRoutes(router *gin.RouterGroup) {
	autoRouter := router.Group("/automode")
	autoRouter.POST("/describe", ginx.Adapt3(a.DescribeAutoMode))
	autoRouter.POST("/toggle", ginx.Adapt3(a.ToggleAutoMode))
	autoRouter.POST("/set", ginx.Adapt5(a.SetAutoMode))
}

func (a *AutoMode) DescribeAutoMode(ctx *gin.Context) (*entity.AutoModeStatus, error) {
	return a.controller.Status(), nil
}

func (a *AutoMode) ToggleAutoMode(ctx *gin.Context) (*entity.AutoModeStatus, error) {
	zerolog.Ctx(ctx).Info().Msg("ToggleAutoMode called")
	a.controller.Toggle(ctx)
	return a.controller.Status(), nil
}

func (a *AutoMode) SetAutoMode(ctx *gin.Context, req *entity.SetAutoModeRequest) (*entity.AutoModeStatus, error) {
	zerolog.Ctx(ctx).Info().Bool("enabled", *req.Enabled).Msg("SetAutoMode called")
	a.controller.SetEnabled(ctx, *req.Enabled)
	return a.controller.Status(), nil
}
