package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/internal/diskd/repository"
	"github.com/jimyag/diskd/internal/diskd/repository/model"
	"github.com/jimyag/diskd/pkg/apierror"
	"github.com/jimyag/diskd/pkg/diskutil"
	"github.com/jimyag/diskd/pkg/idgen"
	"github.com/jimyag/diskd/pkg/smartreport"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SMART 历史来源
const (
	SmartSourceDiagnostic = "diagnostic"
	SmartSourceImport     = "import"
)

// SmartService SMART 报告采集与合并
type SmartService struct {
	repo    *repository.Repository
	devices repository.DeviceRepository
	history repository.SmartHistoryRepository
	client  diskutil.Client
	idGen   *idgen.Generator
	now     func() time.Time
}

// NewSmartService 创建 SMART 服务
func NewSmartService(repo *repository.Repository, client diskutil.Client) *SmartService {
	return &SmartService{
		repo:    repo,
		devices: repository.NewDeviceRepository(repo.DB()),
		history: repository.NewSmartHistoryRepository(repo.DB()),
		client:  client,
		idGen:   idgen.DefaultGenerator(),
		now:     time.Now,
	}
}

// ViewSmart 读取设备的完整 SMART 报告，记录历史并更新设备的 SMART 字段
func (s *SmartService) ViewSmart(ctx context.Context, deviceID string) (*entity.SmartReport, error) {
	logger := zerolog.Ctx(ctx)

	text, err := s.client.RunDiagnostic(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("run diagnostic: %w", err)
	}

	report := smartreport.Parse(text)
	checkedAt := s.now()

	entry := &model.SmartHistory{
		DeviceID:    deviceID,
		Serial:      nonEmptyPtr(report.Serial),
		Temperature: report.Temperature,
		Health:      string(report.Health),
		Source:      SmartSourceDiagnostic,
		CreatedAt:   checkedAt,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append smart history: %w", err)
	}

	if err := s.stampDiagnostic(ctx, deviceID, report, text, checkedAt); err != nil {
		return nil, err
	}

	logger.Info().
		Str("device_id", deviceID).
		Str("health", string(report.Health)).
		Interface("temperature", report.Temperature).
		Msg("SMART report collected")

	return &entity.SmartReport{
		DeviceID:    deviceID,
		Serial:      report.Serial,
		Health:      string(report.Health),
		Temperature: report.Temperature,
		Report:      text,
		CheckedAt:   formatTime(checkedAt),
	}, nil
}

// stampDiagnostic 写入设备的 SMART 字段，序列号和型号只在为空时补全
func (s *SmartService) stampDiagnostic(ctx context.Context, deviceID string, report *smartreport.Report, text string, at time.Time) error {
	device, err := s.devices.GetByDeviceID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			zerolog.Ctx(ctx).Warn().Str("device_id", deviceID).Msg("SMART report for unknown device, inventory not updated")
			return nil
		}
		return fmt.Errorf("get device: %w", err)
	}

	fields := map[string]interface{}{
		"smart_status":      string(report.Health),
		"last_smart_report": text,
		"last_smart_at":     at,
	}
	if device.Serial == nil && report.Serial != "" {
		fields["serial"] = report.Serial
	}
	if device.Model == nil && report.Model != "" {
		fields["model"] = report.Model
	}
	if device.Vendor == nil && report.Vendor != "" {
		fields["vendor"] = report.Vendor
	}
	if err := s.devices.Updates(ctx, device.ID, fields); err != nil {
		return fmt.Errorf("update device smart status: %w", err)
	}
	return nil
}

// ImportReport 按序列号把离线 SMART 报告合并到设备表
// 没有序列号时返回 ErrReportNoIdentity 且不写入任何数据；设备不存在时创建离线占位记录
func (s *SmartService) ImportReport(ctx context.Context, text, deviceHint string) (*entity.ImportSmartReportResponse, error) {
	logger := zerolog.Ctx(ctx)

	report := smartreport.Parse(text)
	if !report.HasIdentity() {
		logger.Warn().Str("device_hint", deviceHint).Msg("SMART report has no serial number, import rejected")
		return nil, apierror.ErrReportNoIdentity
	}

	now := s.now()
	resp := &entity.ImportSmartReportResponse{
		Serial: report.Serial,
		Health: string(report.Health),
	}

	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		devices := repository.NewDeviceRepository(tx)
		history := repository.NewSmartHistoryRepository(tx)

		device, err := devices.GetBySerial(ctx, report.Serial)
		switch {
		case err == nil:
			fields := map[string]interface{}{
				"smart_status":      string(report.Health),
				"last_smart_report": text,
				"last_smart_at":     now,
			}
			// 已知的型号和厂商不会被覆盖
			if device.Model == nil && report.Model != "" {
				fields["model"] = report.Model
			}
			if device.Vendor == nil && report.Vendor != "" {
				fields["vendor"] = report.Vendor
			}
			if err := devices.Updates(ctx, device.ID, fields); err != nil {
				return fmt.Errorf("update device: %w", err)
			}
			resp.Matched = true
			resp.DeviceID = device.DeviceID
			resp.Message = fmt.Sprintf("report merged into device %s", device.DeviceID)

		case errors.Is(err, gorm.ErrRecordNotFound):
			rowID, err := s.idGen.GenerateDeviceRowID()
			if err != nil {
				return fmt.Errorf("generate device row id: %w", err)
			}
			placeholder := &model.Device{
				ID:              rowID,
				DeviceID:        report.Serial,
				Serial:          strPtr(report.Serial),
				Model:           nonEmptyPtr(report.Model),
				Vendor:          nonEmptyPtr(report.Vendor),
				Present:         false,
				SmartStatus:     strPtr(string(report.Health)),
				LastSmartReport: strPtr(text),
				LastSmartAt:     &now,
				FirstSeen:       now,
				UpdatedAt:       now,
			}
			if err := devices.Create(ctx, placeholder); err != nil {
				return fmt.Errorf("create placeholder device: %w", err)
			}
			resp.Created = true
			resp.DeviceID = placeholder.DeviceID
			resp.Message = fmt.Sprintf("no device with serial %s, placeholder created", report.Serial)

		default:
			return fmt.Errorf("get device by serial: %w", err)
		}

		return history.Append(ctx, &model.SmartHistory{
			DeviceID:    resp.DeviceID,
			Serial:      strPtr(report.Serial),
			Temperature: report.Temperature,
			Health:      string(report.Health),
			Source:      SmartSourceImport,
			DeviceHint:  nonEmptyPtr(deviceHint),
			CreatedAt:   now,
		})
	})
	if err != nil {
		logger.Error().Err(err).Str("serial", report.Serial).Msg("Failed to import SMART report")
		return nil, err
	}

	if deviceHint != "" && deviceHint != resp.DeviceID {
		logger.Warn().
			Str("device_hint", deviceHint).
			Str("device_id", resp.DeviceID).
			Msg("Device hint does not match the device resolved by serial")
	}

	logger.Info().
		Str("serial", report.Serial).
		Str("device_id", resp.DeviceID).
		Bool("matched", resp.Matched).
		Bool("created", resp.Created).
		Msg("SMART report imported")

	return resp, nil
}

// ExportRows 把 SMART 历史转换为表格行
func (s *SmartService) ExportRows(ctx context.Context, req *entity.ExportSmartHistoryRequest) (*entity.ExportSmartHistoryResponse, error) {
	filters := map[string]interface{}{}
	if req.DeviceID != "" {
		filters["device_id"] = req.DeviceID
	}

	entries, err := s.history.List(ctx, filters, 0)
	if err != nil {
		return nil, fmt.Errorf("list smart history: %w", err)
	}

	rows := make([]entity.SmartHistoryRow, 0, len(entries))
	for _, e := range entries {
		temp := ""
		if e.Temperature != nil {
			temp = strconv.Itoa(*e.Temperature)
		}
		rows = append(rows, entity.SmartHistoryRow{
			strconv.FormatUint(uint64(e.ID), 10),
			e.DeviceID,
			derefString(e.Serial),
			temp,
			e.Health,
			e.Source,
			formatTime(e.CreatedAt),
		})
	}

	return &entity.ExportSmartHistoryResponse{
		Columns: entity.SmartHistoryColumns,
		Rows:    rows,
	}, nil
}
