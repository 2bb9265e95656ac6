package handler

import (
	"github.com/ashwinyue/datalab/internal/service/dataset"
)

// Handlers 处理器集合
type Handlers struct {
	Dataset  *DatasetHandler
	Filter   *FilterHandler
	Distill  *DistillHandler
	Task     *TaskHandler
	Settings *SettingsHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *dataset.Service) *Handlers {
	return &Handlers{
		Dataset:  NewDatasetHandler(svc),
		Filter:   NewFilterHandler(svc),
		Distill:  NewDistillHandler(svc),
		Task:     NewTaskHandler(svc),
		Settings: NewSettingsHandler(svc),
	}
}
