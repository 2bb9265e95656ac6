// Package dataset 是引擎门面：持有当前数据集、映射、过滤与勾选状态，
// 所有变更都经由任务协调器串行化后在写锁下一次性提交
package dataset

import (
	"fmt"
	"log"
	"sync"

	"github.com/ashwinyue/datalab/internal/config"
	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/distill"
	"github.com/ashwinyue/datalab/internal/service/eventlog"
	"github.com/ashwinyue/datalab/internal/service/export"
	"github.com/ashwinyue/datalab/internal/service/fieldmap"
	"github.com/ashwinyue/datalab/internal/service/filter"
	"github.com/ashwinyue/datalab/internal/service/importer"
	"github.com/ashwinyue/datalab/internal/service/settings"
	"github.com/ashwinyue/datalab/internal/service/task"
	"github.com/ashwinyue/datalab/internal/service/views"
	"github.com/ashwinyue/datalab/internal/store"
)

// Service 数据集引擎
type Service struct {
	mu sync.RWMutex

	ds           *store.Store
	fieldMap     model.FieldMap
	filters      model.FilterConfig
	distillCfg   model.DistillConfig
	filterResult *filter.Result
	selection    *distill.Selection
	language     string
	lastPath     string

	datasetVersion   uint64
	filterVersion    uint64
	selectionVersion uint64

	importer   *importer.Service
	filterSvc  *filter.Service
	distillSvc *distill.Service
	exportSvc  *export.Service
	resolver   *views.Resolver
	previewer  *views.Previewer
	coord      *task.Coordinator
	settings   *settings.Service
	events     *eventlog.Service
}

// NewService 创建引擎并用持久化设置初始化映射与配置
func NewService(cfg *config.Config, coord *task.Coordinator, settingsSvc *settings.Service, events *eventlog.Service) *Service {
	s := &Service{
		fieldMap:   model.FieldMap{},
		filters:    model.DefaultFilterConfig(),
		distillCfg: model.DefaultDistillConfig(),
		importer:   importer.NewService(cfg.Engine.BatchSize),
		filterSvc:  filter.NewService(cfg.Engine.BatchSize, cfg.Engine.FuzzyHammingMax),
		distillSvc: distill.NewService(cfg.Engine.BatchSize),
		exportSvc:  export.NewService(cfg.Engine.BatchSize),
		resolver:   views.NewResolver(),
		previewer:  views.NewPreviewer(cfg.Engine.PreviewTruncate, cfg.Engine.PreviewCodeThreshold),
		coord:      coord,
		settings:   settingsSvc,
		events:     events,
	}

	if saved, err := settingsSvc.Load(); err != nil {
		log.Printf("Failed to load settings: %v", err)
	} else if saved != nil {
		s.fieldMap = saved.FieldMap
		s.filters = saved.Filters
		s.distillCfg = saved.Distill
		s.language = saved.Language
		s.lastPath = saved.LastPath
	}
	return s
}

// Import 导入数据集。新表在旁路构建，成功后才整体替换旧表，
// 失败或取消时保持原数据集不变。
func (s *Service) Import(path string) (model.DatasetSummary, error) {
	var summary model.DatasetSummary
	err := s.coord.Run("import", func(emit task.EmitFunc, cancelled task.CancelledFunc) error {
		ds, err := s.importer.Import(path, emit, cancelled)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.ds = ds
		s.lastPath = path
		s.filterResult = nil
		s.selection = nil
		s.datasetVersion++
		s.filterVersion++
		s.selectionVersion++
		s.mu.Unlock()

		summary = ds.Summary()
		s.persistSettings(nil)
		s.events.Append(fmt.Sprintf("Imported %d records from %s", summary.RecordCount, path))
		return nil
	})
	return summary, err
}

// Summary 当前数据集摘要
func (s *Service) Summary() (model.DatasetSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return model.DatasetSummary{}, model.ErrNoDataset
	}
	return s.ds.Summary(), nil
}

// SetFieldMap 设置角色映射。映射是过滤结论的输入之一，
// 因此旧结论与勾选状态一并失效。
func (s *Service) SetFieldMap(fm model.FieldMap) error {
	return s.coord.Exclusive(func() error {
		s.mu.Lock()
		s.fieldMap = fm
		s.filterResult = nil
		s.selection = nil
		s.filterVersion++
		s.selectionVersion++
		s.mu.Unlock()

		s.persistSettings(nil)
		return nil
	})
}

// AutoMap 为未绑定的角色自动推荐字段并返回结果映射
func (s *Service) AutoMap() (model.FieldMap, error) {
	s.mu.RLock()
	if s.ds == nil {
		s.mu.RUnlock()
		return model.FieldMap{}, model.ErrNoDataset
	}
	mapped := fieldmap.AutoMap(s.fieldMap, s.ds.Fields)
	s.mu.RUnlock()

	if err := s.SetFieldMap(mapped); err != nil {
		return model.FieldMap{}, err
	}
	return mapped, nil
}

// FieldMap 当前角色映射
func (s *Service) FieldMap() model.FieldMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fieldMap
}

// ApplyFilters 在全量记录上重算过滤结论。结论在旁路算出，
// 成功后连同产生它的配置一并提交，勾选状态清空。
func (s *Service) ApplyFilters(cfg model.FilterConfig, fm model.FieldMap) (model.FilterSummary, error) {
	var summary model.FilterSummary
	err := s.coord.Run("filter", func(emit task.EmitFunc, cancelled task.CancelledFunc) error {
		s.mu.RLock()
		ds := s.ds
		s.mu.RUnlock()
		if ds == nil {
			return model.ErrNoDataset
		}

		result, err := s.filterSvc.Apply(ds, cfg, fm, emit, cancelled)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.filters = cfg
		s.fieldMap = fm
		s.filterResult = result
		s.selection = nil
		s.filterVersion++
		s.selectionVersion++
		s.mu.Unlock()

		summary = result.Summary
		s.persistSettings(nil)
		s.events.Append(fmt.Sprintf("Applied filters, %d of %d records retained", summary.FilteredCount, summary.TotalCount))
		return nil
	})
	return summary, err
}

// ListCategories 统计字段取值分布，只读操作
func (s *Service) ListCategories(field string) ([]model.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return nil, model.ErrNoDataset
	}
	return filter.CollectCategories(s.ds, field), nil
}

// PreviewDistillation 在过滤视图上执行蒸馏并提交新的勾选状态。
// random 策略未指定种子时，实际使用的种子会记入配置以便复现。
func (s *Service) PreviewDistillation(cfg model.DistillConfig, fm model.FieldMap) (model.DistillSummary, error) {
	var summary model.DistillSummary
	err := s.coord.Run("distill", func(emit task.EmitFunc, cancelled task.CancelledFunc) error {
		s.mu.RLock()
		ds := s.ds
		var filteredIDs []int
		if s.filterResult != nil {
			filteredIDs = s.filterResult.FilteredIDs
		} else if ds != nil {
			filteredIDs = allIDs(ds.Count())
		}
		s.mu.RUnlock()
		if ds == nil {
			return model.ErrNoDataset
		}

		selection, seed, err := s.distillSvc.Preview(ds, filteredIDs, cfg, fm, emit, cancelled)
		if err != nil {
			return err
		}
		if cfg.Strategy == model.StrategyRandom && cfg.RandomSeed == nil {
			cfg.RandomSeed = &seed
		}

		s.mu.Lock()
		s.distillCfg = cfg
		s.fieldMap = fm
		s.selection = selection
		s.selectionVersion++
		s.mu.Unlock()

		summary = selection.Summary()
		s.persistSettings(nil)
		s.events.Append(fmt.Sprintf("Previewed distillation, %d of %d records selected", summary.SelectedCount, summary.TotalCount))
		return nil
	})
	return summary, err
}

// UpdateManualSelection 应用手动勾选并由当前状态重算摘要，不重跑蒸馏
func (s *Service) UpdateManualSelection(changes []model.ManualChange) (model.DistillSummary, error) {
	var summary model.DistillSummary
	err := s.coord.Exclusive(func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.selection == nil {
			return model.ErrNoSelection
		}
		s.selection.ApplyManual(changes)
		s.selectionVersion++
		summary = s.selection.Summary()
		return nil
	})
	return summary, err
}

// GetPreview 解析视图并渲染一页预览
func (s *Service) GetPreview(view string, page, pageSize int) (model.PreviewPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return model.PreviewPage{}, model.ErrNoDataset
	}
	ids, err := s.resolver.Resolve(view, s.viewInputs())
	if err != nil {
		return model.PreviewPage{}, err
	}
	return s.previewer.Page(s.ds, s.fieldMap, ids, page, pageSize)
}

// GetRecord 按 id 返回原始记录
func (s *Service) GetRecord(id int) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return nil, model.ErrNoDataset
	}
	record, err := s.ds.Record(id)
	if err != nil {
		return nil, err
	}
	return record.Raw, nil
}

// Export 导出视图记录
func (s *Service) Export(view, path, format string) error {
	return s.coord.Run("export", func(emit task.EmitFunc, cancelled task.CancelledFunc) error {
		s.mu.RLock()
		ds := s.ds
		var ids []int
		var err error
		if ds != nil {
			ids, err = s.resolver.Resolve(view, s.viewInputs())
		}
		s.mu.RUnlock()
		if ds == nil {
			return model.ErrNoDataset
		}
		if err != nil {
			return err
		}

		if err := s.exportSvc.Export(ds, ids, path, format, emit, cancelled); err != nil {
			return err
		}
		s.events.Append(fmt.Sprintf("Exported %d records to %s", len(ids), path))
		return nil
	})
}

// CancelTask 请求取消当前任务
func (s *Service) CancelTask() {
	s.coord.Cancel()
}

// TaskStatus 当前或最近一次任务状态
func (s *Service) TaskStatus() task.Status {
	return s.coord.Status()
}

// SubscribeProgress 订阅进度事件
func (s *Service) SubscribeProgress() (<-chan model.ProgressEvent, func()) {
	return s.coord.Subscribe()
}

// Settings 当前设置快照
func (s *Service) Settings() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotSettings()
}

// SaveSettings 采纳并持久化外部提交的设置
func (s *Service) SaveSettings(st model.Settings) error {
	if err := st.Filters.Validate(); err != nil {
		return err
	}
	if err := st.Distill.Validate(); err != nil {
		return err
	}
	return s.coord.Exclusive(func() error {
		s.mu.Lock()
		s.fieldMap = st.FieldMap
		s.filters = st.Filters
		s.distillCfg = st.Distill
		s.language = st.Language
		s.lastPath = st.LastPath
		s.filterResult = nil
		s.selection = nil
		s.filterVersion++
		s.selectionVersion++
		s.mu.Unlock()

		return s.settings.Save(&st)
	})
}

// Logs 最近的事件日志行
func (s *Service) Logs(limit int) ([]string, error) {
	return s.events.Tail(limit)
}

// viewInputs 视图解析输入，调用方需持有读锁
func (s *Service) viewInputs() views.Inputs {
	in := views.Inputs{
		DatasetVersion:   s.datasetVersion,
		FilterVersion:    s.filterVersion,
		SelectionVersion: s.selectionVersion,
		Total:            s.ds.Count(),
		Selection:        s.selection,
	}
	if s.filterResult != nil {
		in.FilteredIDs = s.filterResult.FilteredIDs
	}
	return in
}

// persistSettings 写回设置，失败只记日志不阻断主流程
func (s *Service) persistSettings(mutate func(*model.Settings)) {
	s.mu.Lock()
	snapshot := s.snapshotSettings()
	s.mu.Unlock()

	if mutate != nil {
		mutate(&snapshot)
	}
	if err := s.settings.Save(&snapshot); err != nil {
		log.Printf("Failed to persist settings: %v", err)
	}
}

func (s *Service) snapshotSettings() model.Settings {
	return model.Settings{
		LastPath: s.lastPath,
		Language: s.language,
		FieldMap: s.fieldMap,
		Filters:  s.filters,
		Distill:  s.distillCfg,
	}
}

func allIDs(n int) []int {
	ids := make([]int, n)
	for idx := range ids {
		ids[idx] = idx
	}
	return ids
}
