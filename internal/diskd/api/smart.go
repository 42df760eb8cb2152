package api

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/pkg/apierror"
	"github.com/jimyag/diskd/pkg/ginx"
	"github.com/rs/zerolog"
)

// 上传的报告文件大小上限
const maxReportSize = 4 << 20

// SmartServiceInterface 定义 SMART 服务的接口
type SmartServiceInterface interface {
	ViewSmart(ctx context.Context, deviceID string) (*entity.SmartReport, error)
	ImportReport(ctx context.Context, text, deviceHint string) (*entity.ImportSmartReportResponse, error)
	ExportRows(ctx context.Context, req *entity.ExportSmartHistoryRequest) (*entity.ExportSmartHistoryResponse, error)
}

// Smart SMART API
type Smart struct {
	smartService SmartServiceInterface
}

// NewSmart 创建 SMART API
func NewSmart(smartService SmartServiceInterface) *Smart {
	return &Smart{
		smartService: smartService,
	}
}

// RegisterRoutes 注册路由
func (s *Smart) RegisterRoutes(router *gin.RouterGroup) {
	smartRouter := router.Group("/smart")
	smartRouter.POST("/view", ginx.Adapt5(s.ViewSmart))
	smartRouter.POST("/import", ginx.Adapt5(s.ImportReport))
	smartRouter.GET("/export", s.ExportHistory)
	smartRouter.POST("/export", s.ExportHistory)
}

func (s *Smart) ViewSmart(ctx *gin.Context, req *entity.ViewSmartRequest) (*entity.SmartReport, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("deviceID", req.DeviceID).Msg("ViewSmart called")

	report, err := s.smartService.ViewSmart(ctx, req.DeviceID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to view SMART report")
		return nil, err
	}
	return report, nil
}

// ImportReport 导入 SMART 报告，报告文本来自 JSON/表单的 report 字段或 multipart 的 file 字段
func (s *Smart) ImportReport(ctx *gin.Context, req *entity.ImportSmartReportRequest) (*entity.ImportSmartReportResponse, error) {
	logger := zerolog.Ctx(ctx)

	text := req.Report
	if text == "" && strings.HasPrefix(ctx.ContentType(), "multipart/form-data") {
		fileHeader, err := ctx.FormFile("file")
		if err == nil {
			f, err := fileHeader.Open()
			if err != nil {
				return nil, fmt.Errorf("open uploaded report: %w", err)
			}
			defer f.Close()
			// 多读一个字节用于判断是否超出上限，超出时拒绝而不是导入截断的报告
			data, err := io.ReadAll(io.LimitReader(f, maxReportSize+1))
			if err != nil {
				return nil, fmt.Errorf("read uploaded report: %w", err)
			}
			if len(data) > maxReportSize {
				return nil, apierror.Errorf(apierror.ErrInvalidParameter, "report file exceeds %s", humanize.IBytes(maxReportSize))
			}
			text = string(data)
			logger.Info().Str("filename", fileHeader.Filename).Int64("size", fileHeader.Size).Msg("SMART report uploaded")
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, apierror.Errorf(apierror.ErrInvalidParameter, "report text or file is required")
	}

	logger.Info().Str("deviceHint", req.DeviceHint).Msg("ImportReport called")

	resp, err := s.smartService.ImportReport(ctx, text, req.DeviceHint)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to import SMART report")
		return nil, err
	}
	return resp, nil
}

// ExportHistory 导出 SMART 历史，format=csv 时返回 CSV 附件，否则返回 JSON
func (s *Smart) ExportHistory(ctx *gin.Context) {
	logger := zerolog.Ctx(ctx)

	var req entity.ExportSmartHistoryRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ginx.AbortWithError(ctx, apierror.WrapError(apierror.ErrInvalidParameter, err.Error(), err))
		return
	}
	format := strings.ToLower(req.Format)
	if format != "" && format != "json" && format != "csv" {
		ginx.AbortWithError(ctx, apierror.Errorf(apierror.ErrInvalidParameter, "unsupported export format %q", req.Format))
		return
	}

	logger.Info().Str("format", format).Str("deviceID", req.DeviceID).Msg("ExportHistory called")

	resp, err := s.smartService.ExportRows(ctx, &req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to export SMART history")
		ginx.AbortWithError(ctx, err)
		return
	}

	if format != "csv" {
		ctx.JSON(http.StatusOK, resp)
		return
	}

	filename := fmt.Sprintf("smart-history-%s.csv", time.Now().Format("20060102-150405"))
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Status(http.StatusOK)
	ctx.Writer.Header().Set("Content-Type", "text/csv; charset=utf-8")

	w := csv.NewWriter(ctx.Writer)
	if err := w.Write(resp.Columns); err != nil {
		logger.Error().Err(err).Msg("Failed to write CSV header")
		return
	}
	for _, row := range resp.Rows {
		if err := w.Write(row); err != nil {
			logger.Error().Err(err).Msg("Failed to write CSV row")
			return
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logger.Error().Err(err).Msg("Failed to flush CSV")
	}
}
