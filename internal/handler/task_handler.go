package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/datalab/internal/service/dataset"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	svc *dataset.Service
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(svc *dataset.Service) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// CancelTask 请求取消当前任务
func (h *TaskHandler) CancelTask(c *gin.Context) {
	h.svc.CancelTask()
	Success(c, gin.H{"cancelled": true})
}

// GetTaskStatus 当前或最近一次任务状态
func (h *TaskHandler) GetTaskStatus(c *gin.Context) {
	Success(c, h.svc.TaskStatus())
}

// StreamProgress 进度事件（流式）
func (h *TaskHandler) StreamProgress(c *gin.Context) {
	events, unsubscribe := h.svc.SubscribeProgress()
	defer unsubscribe()

	// 设置 SSE 响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")

	// 发送流式事件
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent("progress", event)
			c.Writer.Flush()
		}
	}
}
