package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/datalab/internal/handler"
	"github.com/ashwinyue/datalab/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Dataset 数据集
		datasets := v1.Group("/datasets")
		{
			datasets.POST("/import", h.Dataset.ImportDataset)
			datasets.GET("/current", h.Dataset.GetDataset)
		}

		// FieldMap 角色映射
		fieldmap := v1.Group("/fieldmap")
		{
			fieldmap.GET("", h.Filter.GetFieldMap)
			fieldmap.PUT("", h.Filter.SetFieldMap)
			fieldmap.POST("/auto", h.Filter.AutoMapFields)
		}

		// Filter 过滤
		v1.POST("/filters/apply", h.Filter.ApplyFilters)
		v1.GET("/categories", h.Filter.ListCategories)

		// Distill 蒸馏与勾选
		v1.POST("/distill/preview", h.Distill.PreviewDistillation)
		v1.POST("/selection", h.Distill.UpdateManualSelection)

		// Preview 预览与记录
		v1.GET("/preview", h.Dataset.GetPreview)
		v1.GET("/records/:id", h.Dataset.GetRecord)

		// Export 导出
		v1.POST("/export", h.Dataset.ExportDataset)

		// Task 任务
		tasks := v1.Group("/tasks")
		{
			tasks.POST("/cancel", h.Task.CancelTask)
			tasks.GET("/current", h.Task.GetTaskStatus)
			tasks.GET("/events", h.Task.StreamProgress)
		}

		// Settings 设置与日志
		v1.GET("/settings", h.Settings.GetSettings)
		v1.PUT("/settings", h.Settings.SaveSettings)
		v1.GET("/logs", h.Settings.GetLogs)
	}

	return r
}
