package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jimyag/diskd/internal/diskd/entity"
	"github.com/jimyag/diskd/internal/diskd/repository"
	"github.com/jimyag/diskd/pkg/apierror"
	"github.com/jimyag/diskd/pkg/ginx"
	"github.com/rs/zerolog"
)

const (
	watchPollInterval = 500 * time.Millisecond
	watchWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 状态页和 API 同源部署，不限制 Origin
		return true
	},
}

// WatchTask 通过 WebSocket 推送任务状态，状态或进度变化时发送一次，任务结束后关闭连接
func (t *Task) WatchTask(ctx *gin.Context) {
	logger := zerolog.Ctx(ctx.Request.Context())

	taskID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ginx.AbortWithError(ctx, apierror.Errorf(apierror.ErrInvalidParameter, "invalid task id %q", ctx.Param("id")))
		return
	}

	// 升级前先确认任务存在，不存在时返回普通的 JSON 错误
	status, err := t.taskService.QueryStatus(ctx, taskID)
	if err != nil {
		ginx.AbortWithError(ctx, err)
		return
	}

	wsConn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Error().Err(err).Uint64("taskID", taskID).Msg("Failed to upgrade WebSocket")
		return
	}
	defer wsConn.Close()

	logger.Info().Uint64("taskID", taskID).Msg("Task watch connection opened")

	// 读取客户端消息只为了感知断开
	watchCtx, cancel := context.WithCancel(ctx.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := wsConn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	sent := false
	var last entity.TaskStatus
	for {
		current := *status
		if !sent || current != last {
			_ = wsConn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
			if err := wsConn.WriteJSON(status); err != nil {
				logger.Warn().Err(err).Uint64("taskID", taskID).Msg("Failed to send task status")
				return
			}
			sent, last = true, current
		}

		if status.Status != repository.TaskStatusRunning {
			_ = wsConn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, status.Status),
				time.Now().Add(watchWriteTimeout))
			logger.Info().Uint64("taskID", taskID).Str("status", status.Status).Msg("Task watch finished")
			return
		}

		select {
		case <-watchCtx.Done():
			return
		case <-ticker.C:
		}

		status, err = t.taskService.QueryStatus(watchCtx, taskID)
		if err != nil {
			logger.Error().Err(err).Uint64("taskID", taskID).Msg("Failed to query task status")
			_ = wsConn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "query task status failed"),
				time.Now().Add(watchWriteTimeout))
			return
		}
	}
}
