package distill

import (
	"sort"

	"github.com/ashwinyue/datalab/internal/model"
)

// Selection 过滤视图内每条记录的勾选状态，蒸馏与手动覆盖共同维护
type Selection struct {
	filteredIDs []int
	inView      map[int]bool
	selected    map[int]bool
	manual      map[int]bool
}

func newSelection(filteredIDs []int) *Selection {
	inView := make(map[int]bool, len(filteredIDs))
	for _, id := range filteredIDs {
		inView[id] = true
	}
	return &Selection{
		filteredIDs: append([]int(nil), filteredIDs...),
		inView:      inView,
		selected:    make(map[int]bool, len(filteredIDs)),
		manual:      make(map[int]bool),
	}
}

// ApplyManual 应用手动勾选变更。过滤视图之外的 id 忽略，
// 视图内的 id 置 selected 并标记手动覆盖，其余记录不受影响。
func (s *Selection) ApplyManual(changes []model.ManualChange) {
	for _, change := range changes {
		if !s.inView[change.ID] {
			continue
		}
		s.selected[change.ID] = change.Include
		s.manual[change.ID] = true
	}
}

// Summary 由当前状态直接重算摘要，不重新执行蒸馏
func (s *Selection) Summary() model.DistillSummary {
	selectedCount := 0
	for _, id := range s.filteredIDs {
		if s.selected[id] {
			selectedCount++
		}
	}
	return model.DistillSummary{
		TotalCount:    len(s.filteredIDs),
		SelectedCount: selectedCount,
		RemovedCount:  len(s.filteredIDs) - selectedCount,
	}
}

// SelectedIDs 选中的记录 id，升序
func (s *Selection) SelectedIDs() []int {
	ids := make([]int, 0, len(s.filteredIDs))
	for _, id := range s.filteredIDs {
		if s.selected[id] {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// RemovedIDs 过滤视图内未选中的记录 id，升序
func (s *Selection) RemovedIDs() []int {
	ids := make([]int, 0, len(s.filteredIDs))
	for _, id := range s.filteredIDs {
		if !s.selected[id] {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// IsSelected 记录是否被选中
func (s *Selection) IsSelected(id int) bool {
	return s.selected[id]
}

// IsManual 记录是否被手动覆盖过
func (s *Selection) IsManual(id int) bool {
	return s.manual[id]
}
