package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/pkg/ginx"
	"github.com/rs/zerolog"
)

// HistoryServiceInterface 定义历史和概览服务的接口
type HistoryServiceInterface interface {
	ListHistory(ctx context.Context, req *entity.ListHistoryRequest) (*entity.ListHistoryResponse, error)
	ClearHistory(ctx context.Context) (*entity.ClearHistoryResponse, error)
	Dashboard(ctx context.Context) (*entity.Dashboard, error)
}

// History 历史 API
type History struct {
	historyService HistoryServiceInterface
}

// NewHistory 创建历史 API
func NewHistory(historyService HistoryServiceInterface) *History {
	return &History{
		historyService: historyService,
	}
}

// RegisterRoutes 注册路由
func (h *History) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/history/list", ginx.Adapt5(h.ListHistory))
	router.POST("/history/clear", ginx.Adapt3(h.ClearHistory))
	router.POST("/dashboard/describe", ginx.Adapt3(h.DescribeDashboard))
}

func (h *History) ListHistory(ctx *gin.Context, req *entity.ListHistoryRequest) (*entity.ListHistoryResponse, error) {
	resp, err := h.historyService.ListHistory(ctx, req)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to list history")
		return nil, err
	}
	return resp, nil
}

func (h *History) ClearHistory(ctx *gin.Context) (*entity.ClearHistoryResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Msg("ClearHistory called")

	resp, err := h.historyService.ClearHistory(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to clear history")
		return nil, err
	}
	return resp, nil
}

func (h *History) DescribeDashboard(ctx *gin.Context) (*entity.Dashboard, error) {
	dashboard, err := h.historyService.Dashboard(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to describe dashboard")
		return nil, err
	}
	return dashboard, nil
}
