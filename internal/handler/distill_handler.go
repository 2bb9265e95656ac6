package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/dataset"
)

// DistillHandler 蒸馏与勾选处理器
type DistillHandler struct {
	svc *dataset.Service
}

// NewDistillHandler 创建蒸馏处理器
func NewDistillHandler(svc *dataset.Service) *DistillHandler {
	return &DistillHandler{svc: svc}
}

// PreviewDistillationRequest 蒸馏预览请求
type PreviewDistillationRequest struct {
	Config   model.DistillConfig `json:"config"`
	FieldMap model.FieldMap      `json:"fieldMap"`
}

// ManualSelectionRequest 手动勾选请求
type ManualSelectionRequest struct {
	Changes []model.ManualChange `json:"changes" binding:"required"`
}

// PreviewDistillation 在过滤视图上执行蒸馏
func (h *DistillHandler) PreviewDistillation(c *gin.Context) {
	var req PreviewDistillationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	summary, err := h.svc.PreviewDistillation(req.Config, req.FieldMap)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, summary)
}

// UpdateManualSelection 应用手动勾选
func (h *DistillHandler) UpdateManualSelection(c *gin.Context) {
	var req ManualSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	summary, err := h.svc.UpdateManualSelection(req.Changes)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, summary)
}
