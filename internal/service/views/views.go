// Package views 计算四个逻辑视图的 id 序列并渲染分页预览
package views

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/distill"
	"github.com/ashwinyue/datalab/internal/store"
)

// Inputs 视图的三个独立上游及其版本号，任一版本变化都会使缓存失效
type Inputs struct {
	DatasetVersion   uint64
	FilterVersion    uint64
	SelectionVersion uint64

	Total       int
	FilteredIDs []int              // nil 表示尚未过滤，过滤视图退化为全量
	Selection   *distill.Selection // nil 表示尚未蒸馏
}

type cacheKey struct {
	dataset   uint64
	filter    uint64
	selection uint64
}

// Resolver 视图解析器，按输入版本缓存已算出的 id 序列
type Resolver struct {
	mu    sync.Mutex
	key   cacheKey
	cache map[string][]int
}

// NewResolver 创建视图解析器
func NewResolver() *Resolver {
	return &Resolver{cache: make(map[string][]int)}
}

// Resolve 返回视图的有序 id 序列
func (r *Resolver) Resolve(view string, in Inputs) ([]int, error) {
	if !model.ValidView(view) {
		return nil, model.NewValidationError("unknown view %q", view)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey{in.DatasetVersion, in.FilterVersion, in.SelectionVersion}
	if key != r.key {
		r.key = key
		r.cache = make(map[string][]int)
	}
	if ids, ok := r.cache[view]; ok {
		return ids, nil
	}

	ids := compute(view, in)
	r.cache[view] = ids
	return ids, nil
}

func compute(view string, in Inputs) []int {
	switch view {
	case model.ViewAll:
		return sequence(in.Total)
	case model.ViewFiltered:
		if in.FilteredIDs == nil {
			return sequence(in.Total)
		}
		return in.FilteredIDs
	case model.ViewSelected:
		if in.Selection == nil {
			return []int{}
		}
		return in.Selection.SelectedIDs()
	default: // removed = 过滤剔除的记录 + 过滤视图内未选中的记录
		excluded := excludedIDs(in)
		if in.Selection == nil {
			return excluded
		}
		ids := append(excluded, in.Selection.RemovedIDs()...)
		sort.Ints(ids)
		return ids
	}
}

// excludedIDs 被过滤规则剔除的记录 id
func excludedIDs(in Inputs) []int {
	if in.FilteredIDs == nil {
		return []int{}
	}
	filtered := make(map[int]bool, len(in.FilteredIDs))
	for _, id := range in.FilteredIDs {
		filtered[id] = true
	}
	ids := make([]int, 0, in.Total-len(in.FilteredIDs))
	for id := 0; id < in.Total; id++ {
		if !filtered[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func sequence(n int) []int {
	ids := make([]int, n)
	for idx := range ids {
		ids[idx] = idx
	}
	return ids
}

// Previewer 把记录字段渲染为展示单元格
type Previewer struct {
	truncate      int
	codeThreshold int
}

// NewPreviewer 创建预览渲染器
func NewPreviewer(truncate, codeThreshold int) *Previewer {
	if truncate <= 0 {
		truncate = 480
	}
	if codeThreshold <= 0 {
		codeThreshold = 160
	}
	return &Previewer{truncate: truncate, codeThreshold: codeThreshold}
}

// Page 对视图分页并渲染，TotalCount 为视图全长
func (p *Previewer) Page(ds *store.Store, fieldMap model.FieldMap, ids []int, page, pageSize int) (model.PreviewPage, error) {
	if page < 1 {
		return model.PreviewPage{}, model.NewValidationError("page must be at least 1, got %d", page)
	}
	if pageSize < 1 {
		return model.PreviewPage{}, model.NewValidationError("pageSize must be at least 1, got %d", pageSize)
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(ids) {
		start = len(ids)
	}
	if end > len(ids) {
		end = len(ids)
	}

	items := make([]model.PreviewItem, 0, end-start)
	for _, id := range ids[start:end] {
		record, err := ds.Record(id)
		if err != nil {
			return model.PreviewPage{}, err
		}
		items = append(items, model.PreviewItem{ID: id, Fields: p.render(ds, record.Raw, fieldMap)})
	}

	return model.PreviewPage{
		Items:      items,
		TotalCount: len(ids),
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// render 先渲染已映射角色的字段，一个角色都没绑到值时回退前两个原始字段
func (p *Previewer) render(ds *store.Store, raw map[string]any, fieldMap model.FieldMap) []model.PreviewField {
	fields := make([]model.PreviewField, 0, 5)

	push := func(name, kind string) {
		if name == "" {
			return
		}
		value, ok := store.ExtractValue(raw, name)
		if !ok {
			return
		}
		text := flatten(value)
		if strings.TrimSpace(text) == "" {
			return
		}
		fields = append(fields, model.PreviewField{
			Name:  name,
			Value: store.Truncate(text, p.truncate),
			Kind:  p.classify(kind, text),
		})
	}

	push(fieldMap.Instruction, model.CellText)
	push(fieldMap.Output, model.CellText)
	push(fieldMap.Code, model.CellCode)
	push(fieldMap.Category, model.CellMeta)
	push(fieldMap.Score, model.CellMeta)

	if len(fields) == 0 {
		for _, name := range ds.Fields {
			if len(fields) >= 2 {
				break
			}
			push(name, model.CellText)
		}
	}
	return fields
}

// classify 含换行或超长的文本按代码渲染
func (p *Previewer) classify(kind, text string) string {
	if kind != model.CellText {
		return kind
	}
	if strings.Contains(text, "\n") || store.TextLength(text) > p.codeThreshold {
		return model.CellCode
	}
	return model.CellText
}

// flatten 结构化值展开为逐行的 key: value 文本
func flatten(value any) string {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, key := range keys {
			lines = append(lines, fmt.Sprintf("%s: %s", key, store.ValueToString(v[key])))
		}
		return strings.Join(lines, "\n")
	case []any:
		lines := make([]string, 0, len(v))
		for idx, item := range v {
			lines = append(lines, fmt.Sprintf("%d: %s", idx, store.ValueToString(item)))
		}
		return strings.Join(lines, "\n")
	default:
		return store.ValueToString(value)
	}
}
