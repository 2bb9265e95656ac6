package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/dataset"
)

// SettingsHandler 设置与日志处理器
type SettingsHandler struct {
	svc *dataset.Service
}

// NewSettingsHandler 创建设置处理器
func NewSettingsHandler(svc *dataset.Service) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// GetSettings 获取当前设置
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	Success(c, h.svc.Settings())
}

// SaveSettings 保存设置
func (h *SettingsHandler) SaveSettings(c *gin.Context) {
	var st model.Settings
	if err := c.ShouldBindJSON(&st); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := h.svc.SaveSettings(st); err != nil {
		Error(c, err)
		return
	}

	Success(c, st)
}

// GetLogs 获取最近的事件日志
func (h *SettingsHandler) GetLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		BadRequest(c, "invalid limit")
		return
	}

	lines, err := h.svc.Logs(limit)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, gin.H{"lines": lines, "total": len(lines)})
}
