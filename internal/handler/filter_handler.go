package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/dataset"
)

// FilterHandler 过滤与映射处理器
type FilterHandler struct {
	svc *dataset.Service
}

// NewFilterHandler 创建过滤处理器
func NewFilterHandler(svc *dataset.Service) *FilterHandler {
	return &FilterHandler{svc: svc}
}

// ApplyFiltersRequest 过滤请求
type ApplyFiltersRequest struct {
	Filters  model.FilterConfig `json:"filters"`
	FieldMap model.FieldMap     `json:"fieldMap"`
}

// ApplyFilters 在全量记录上重算过滤结论
func (h *FilterHandler) ApplyFilters(c *gin.Context) {
	var req ApplyFiltersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	summary, err := h.svc.ApplyFilters(req.Filters, req.FieldMap)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, summary)
}

// GetFieldMap 获取当前角色映射
func (h *FilterHandler) GetFieldMap(c *gin.Context) {
	Success(c, h.svc.FieldMap())
}

// SetFieldMap 设置角色映射
func (h *FilterHandler) SetFieldMap(c *gin.Context) {
	var fm model.FieldMap
	if err := c.ShouldBindJSON(&fm); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if err := h.svc.SetFieldMap(fm); err != nil {
		Error(c, err)
		return
	}

	Success(c, fm)
}

// AutoMapFields 自动推荐角色映射
func (h *FilterHandler) AutoMapFields(c *gin.Context) {
	fm, err := h.svc.AutoMap()
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, fm)
}

// ListCategories 统计字段取值分布
func (h *FilterHandler) ListCategories(c *gin.Context) {
	field := c.Query("field")

	categories, err := h.svc.ListCategories(field)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, gin.H{"categories": categories, "total": len(categories)})
}
