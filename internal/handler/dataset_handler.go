package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/dataset"
)

// DatasetHandler 数据集处理器
type DatasetHandler struct {
	svc *dataset.Service
}

// NewDatasetHandler 创建数据集处理器
func NewDatasetHandler(svc *dataset.Service) *DatasetHandler {
	return &DatasetHandler{svc: svc}
}

// ImportRequest 导入请求
type ImportRequest struct {
	Path string `json:"path" binding:"required"`
}

// ExportRequest 导出请求
type ExportRequest struct {
	View   string `json:"view" binding:"required"`
	Path   string `json:"path" binding:"required"`
	Format string `json:"format" binding:"required"`
}

// ImportDataset 从文件导入数据集
func (h *DatasetHandler) ImportDataset(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	summary, err := h.svc.Import(req.Path)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, summary)
}

// GetDataset 获取当前数据集摘要
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	summary, err := h.svc.Summary()
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, summary)
}

// GetPreview 分页预览指定视图
func (h *DatasetHandler) GetPreview(c *gin.Context) {
	view := c.DefaultQuery("view", model.ViewAll)
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		BadRequest(c, "invalid page")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil {
		BadRequest(c, "invalid pageSize")
		return
	}

	result, err := h.svc.GetPreview(view, page, pageSize)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, result)
}

// GetRecord 获取单条原始记录
func (h *DatasetHandler) GetRecord(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid record id")
		return
	}

	record, err := h.svc.GetRecord(id)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, record)
}

// ExportDataset 导出指定视图
func (h *DatasetHandler) ExportDataset(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := h.svc.Export(req.View, req.Path, req.Format); err != nil {
		Error(c, err)
		return
	}

	Success(c, gin.H{"path": req.Path})
}
