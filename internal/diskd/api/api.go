// Package api 提供 diskd 的 HTTP 接口
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimyag/diskd/pkg/ginx"
	"github.com/rs/zerolog"
)

// Services API 依赖的服务
type Services struct {
	Devices  DeviceServiceInterface
	AutoMode AutoModeInterface
	Tasks    TaskServiceInterface
	Smart    SmartServiceInterface
	History  HistoryServiceInterface
}

type API struct {
	engine *gin.Engine
	server *http.Server

	device   *Device
	autoMode *AutoMode
	task     *Task
	smart    *Smart
	history  *History
}

func New(addr string, logger zerolog.Logger, services Services) (*API, error) {
	engine := gin.New()
	// handler 把 *gin.Context 当作 context.Context 传给服务层，需要回落到 Request.Context()
	engine.ContextWithFallback = true
	engine.Use(gin.Recovery(), ginx.RequestLogger(logger))

	api := &API{
		engine:   engine,
		device:   NewDevice(services.Devices),
		autoMode: NewAutoMode(services.AutoMode),
		task:     NewTask(services.Tasks),
		smart:    NewSmart(services.Smart),
		history:  NewHistory(services.History),
	}

	router := engine.Group("/api")
	api.device.RegisterRoutes(router)
	api.autoMode.RegisterRoutes(router)
	api.task.RegisterRoutes(router)
	api.smart.RegisterRoutes(router)
	api.history.RegisterRoutes(router)

	api.server = &http.Server{
		Addr:    addr,
		Handler: engine,
	}
	return api, nil
}

// Name 实现 grace.Grace 接口
func (a *API) Name() string {
	return "API Server"
}

// Run 实现 grace.Grace 接口
func (a *API) Run(ctx context.Context) error {
	zerolog.Ctx(ctx).Info().Str("address", a.server.Addr).Msg("API server listening")
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 实现 grace.Grace 接口
func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}
