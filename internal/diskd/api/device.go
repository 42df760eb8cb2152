package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/pkg/ginx"
	"github.com/rs/zerolog"
)

// DeviceServiceInterface 定义设备清单服务的接口
type DeviceServiceInterface interface {
	ListDevices(ctx context.Context, req *entity.ListDevicesRequest) (*entity.ListDevicesResponse, error)
	SyncDevices(ctx context.Context) (*entity.SyncDevicesResponse, error)
	DescribeDevice(ctx context.Context, deviceID string) (*entity.Device, error)
}

// Device 设备 API
type Device struct {
	deviceService DeviceServiceInterface
}

// NewDevice 创建设备 API
func NewDevice(deviceService DeviceServiceInterface) *Device {
	return &Device{
		deviceService: deviceService,
	}
}

// RegisterRoutes 注册路由
func (d *Device) RegisterRoutes(router *gin.RouterGroup) {
	deviceRouter := router.Group("/devices")
	deviceRouter.POST("/list", ginx.Adapt5(d.ListDevices))
	deviceRouter.POST("/sync", ginx.Adapt3(d.SyncDevices))
	deviceRouter.POST("/describe", ginx.Adapt5(d.DescribeDevice))
}

func (d *Device) ListDevices(ctx *gin.Context, req *entity.ListDevicesRequest) (*entity.ListDevicesResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("query", req.Query).
		Bool("includeAbsent", req.IncludeAbsent).
		Msg("ListDevices called")

	resp, err := d.deviceService.ListDevices(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list devices")
		return nil, err
	}
	return resp, nil
}

func (d *Device) SyncDevices(ctx *gin.Context) (*entity.SyncDevicesResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Msg("SyncDevices called")

	resp, err := d.deviceService.SyncDevices(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to sync devices")
		return nil, err
	}

	logger.Info().
		Strs("newDevices", resp.NewDevices).
		Int("devices", len(resp.Devices)).
		Msg("Devices synced successfully")
	return resp, nil
}

func (d *Device) DescribeDevice(ctx *gin.Context, req *entity.DescribeDeviceRequest) (*entity.DescribeDeviceResponse, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Str("deviceID", req.DeviceID).Msg("DescribeDevice called")

	device, err := d.deviceService.DescribeDevice(ctx, req.DeviceID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to describe device")
		return nil, err
	}
	return &entity.DescribeDeviceResponse{Device: device}, nil
}
