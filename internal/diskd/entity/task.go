package entity

import (
	"strings"

	"github.com/jimyag/diskd/pkg/apierror"
	"github.com/jimyag/diskd/pkg/diskutil"
)

// Task 任务
type Task struct {
	ID        uint64  `json:"id,string"`
	DeviceID  string  `json:"deviceID"`
	Action    string  `json:"action"`
	Status    string  `json:"status"`
	Progress  int     `json:"progress"`
	Output    *string `json:"output,omitempty"`
	StartedAt string  `json:"startedAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// TaskStatus 任务状态和进度
type TaskStatus struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// StartTaskRequest 按 action 启动任务
type StartTaskRequest struct {
	DeviceID string `json:"deviceID" binding:"required"`
	Action   string `json:"action" binding:"required"` // FORMAT_ext4, SMART_SHORT, SMART_VIEW, VALIDATE
}

// StartTaskResponse 启动任务响应
type StartTaskResponse struct {
	TaskID uint64 `json:"taskID,string"`
}

// StartFormatRequest 格式化请求
type StartFormatRequest struct {
	DeviceID   string `json:"deviceID" binding:"required"`
	Filesystem string `json:"filesystem,omitempty"` // ext4, xfs, fat32，为空时使用默认值
}

// IsValid 校验文件系统
func (r *StartFormatRequest) IsValid() error {
	if r.Filesystem != "" && !diskutil.IsSupportedFilesystem(r.Filesystem) {
		return apierror.ErrInvalidFilesystem
	}
	return nil
}

// StartValidateRequest 坏块校验请求
type StartValidateRequest struct {
	DeviceID string `json:"deviceID" binding:"required"`
}

// StartSmartTestRequest SMART 自检请求
type StartSmartTestRequest struct {
	DeviceID string `json:"deviceID" binding:"required"`
	Mode     string `json:"mode,omitempty"` // short, long，为空时使用默认值
}

// IsValid 校验自检类型
func (r *StartSmartTestRequest) IsValid() error {
	if r.Mode != "" && !diskutil.SelfTestModes[strings.ToLower(r.Mode)] {
		return apierror.ErrInvalidSmartMode
	}
	return nil
}

// StartSmartViewRequest 异步获取 SMART 报告请求
type StartSmartViewRequest struct {
	DeviceID string `json:"deviceID" binding:"required"`
}

// TaskIDRequest 通过任务 ID 操作的请求
type TaskIDRequest struct {
	TaskID uint64 `json:"taskID,string" form:"task_id" uri:"id" binding:"required"`
}

// ListTasksRequest 列出任务请求
type ListTasksRequest struct {
	DeviceID string `json:"deviceID,omitempty" form:"device_id"`
	Status   string `json:"status,omitempty" form:"status"`
	Limit    int    `json:"limit,omitempty" form:"limit"`
}

// IsValid 校验 limit
func (r *ListTasksRequest) IsValid() error {
	if r.Limit < 0 {
		return apierror.Errorf(apierror.ErrInvalidParameter, "limit must not be negative")
	}
	return nil
}

// ListTasksResponse 列出任务响应
type ListTasksResponse struct {
	Tasks []Task `json:"tasks"`
}

// DescribeTaskResponse 查询任务响应
type DescribeTaskResponse struct {
	Task *Task `json:"task"`
}

// UpdateTaskRequest 部分更新任务请求，status 和 progress 至少提供一个
type UpdateTaskRequest struct {
	TaskID   uint64  `json:"taskID,string" binding:"required"`
	Status   *string `json:"status,omitempty"`
	Progress *int    `json:"progress,omitempty"`
}
