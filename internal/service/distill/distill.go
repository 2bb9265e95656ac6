// Package distill 从过滤后的记录集中抽取目标规模的子集，并维护勾选状态
package distill

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/task"
	"github.com/ashwinyue/datalab/internal/store"
)

// uncategorized 无类别记录归入的桶
const uncategorized = "uncategorized"

// Service 蒸馏引擎
type Service struct {
	batchSize int
}

// NewService 创建蒸馏引擎
func NewService(batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Service{batchSize: batchSize}
}

// recordMeta 参与策略计算的记录元信息
type recordMeta struct {
	id       int
	category string
	score    float64
	hasScore bool
}

// Preview 在过滤视图上执行一次蒸馏，返回新的选择状态与实际使用的随机种子。
// 每次蒸馏都会清空所有手动覆盖标记。
func (s *Service) Preview(ds *store.Store, filteredIDs []int, cfg model.DistillConfig, fieldMap model.FieldMap, emit task.EmitFunc, cancelled task.CancelledFunc) (*Selection, int64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, 0, err
	}

	metas := make([]recordMeta, 0, len(filteredIDs))
	for idx, id := range filteredIDs {
		if idx%s.batchSize == 0 && idx > 0 {
			if cancelled() {
				return nil, 0, model.ErrCancelled
			}
			emit(idx, len(filteredIDs), fmt.Sprintf("Prepared %d records", idx))
		}
		record, err := ds.Record(id)
		if err != nil {
			return nil, 0, err
		}
		metas = append(metas, buildMeta(record, fieldMap))
	}

	target := resolveTarget(cfg, len(metas))

	// 未指定种子时取一个新种子并回报给调用方记录，保证可复现
	seed := time.Now().UnixNano()
	if cfg.RandomSeed != nil {
		seed = *cfg.RandomSeed
	}

	var selectedIDs []int
	if cfg.PreserveCategoryBalance {
		selectedIDs = selectBalanced(metas, target, cfg.Strategy, seed)
	} else {
		selectedIDs = applyStrategy(metas, target, cfg.Strategy, seed)
	}
	sort.Ints(selectedIDs)

	selection := newSelection(filteredIDs)
	for _, id := range selectedIDs {
		selection.selected[id] = true
	}
	emit(len(filteredIDs), len(filteredIDs), "Distillation complete")
	return selection, seed, nil
}

func buildMeta(record model.Record, fieldMap model.FieldMap) recordMeta {
	meta := recordMeta{id: record.ID}
	meta.category = store.ExtractText(record.Raw, fieldMap.Category)
	if text := store.ExtractText(record.Raw, fieldMap.Score); text != "" {
		if score, err := strconv.ParseFloat(text, 64); err == nil {
			meta.score = score
			meta.hasScore = true
		}
	}
	return meta
}

// resolveTarget 计算目标规模并收敛到 [0, filteredCount]
func resolveTarget(cfg model.DistillConfig, total int) int {
	var target int
	switch {
	case cfg.TargetCount != nil:
		target = *cfg.TargetCount
	case cfg.TargetPercent != nil:
		target = int(math.Round(float64(total) * *cfg.TargetPercent / 100))
	default:
		target = int(math.Round(float64(total) * 0.10))
	}
	if target < 0 {
		target = 0
	}
	if target > total {
		target = total
	}
	return target
}

// applyStrategy 在一组元信息上执行策略，返回选中的记录 id
func applyStrategy(metas []recordMeta, target int, strategy string, seed int64) []int {
	if target <= 0 || len(metas) == 0 {
		return nil
	}

	switch strategy {
	case model.StrategyRandom:
		return selectRandom(metas, target, seed)
	case model.StrategyImportance:
		return selectImportance(metas, target)
	default:
		return selectDiversity(metas, target)
	}
}

// selectRandom 种子置换后取前 target 个
func selectRandom(metas []recordMeta, target int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(metas))
	selected := make([]int, 0, target)
	for _, idx := range perm[:target] {
		selected = append(selected, metas[idx].id)
	}
	return selected
}

// selectDiversity 按类别分桶轮询，桶内按 id 升序逐个取出
func selectDiversity(metas []recordMeta, target int) []int {
	buckets := make(map[string][]recordMeta)
	for _, meta := range metas {
		key := meta.category
		if key == "" {
			key = uncategorized
		}
		buckets[key] = append(buckets[key], meta)
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	cursors := make(map[string]int, len(buckets))
	selected := make([]int, 0, target)
	for len(selected) < target {
		progressed := false
		for _, key := range keys {
			bucket := buckets[key]
			cursor := cursors[key]
			if cursor >= len(bucket) {
				continue
			}
			selected = append(selected, bucket[cursor].id)
			cursors[key] = cursor + 1
			progressed = true
			if len(selected) >= target {
				break
			}
		}
		if !progressed {
			break
		}
	}
	return selected
}

// selectImportance 按分数降序取前 target 个，缺失或不可解析的分数排最后，
// 同分按 id 升序
func selectImportance(metas []recordMeta, target int) []int {
	sorted := append([]recordMeta(nil), metas...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].hasScore != sorted[j].hasScore {
			return sorted[i].hasScore
		}
		if sorted[i].score != sorted[j].score {
			return sorted[i].score > sorted[j].score
		}
		return sorted[i].id < sorted[j].id
	})
	selected := make([]int, 0, target)
	for _, meta := range sorted[:target] {
		selected = append(selected, meta.id)
	}
	return selected
}

// selectBalanced 先按最大余数法给每个类别分配配额，再在类别内独立执行策略
func selectBalanced(metas []recordMeta, target int, strategy string, seed int64) []int {
	if target <= 0 || len(metas) == 0 {
		return nil
	}

	byCategory := make(map[string][]recordMeta)
	for _, meta := range metas {
		key := meta.category
		if key == "" {
			key = uncategorized
		}
		byCategory[key] = append(byCategory[key], meta)
	}

	type allocation struct {
		name      string
		quota     int
		remainder float64
	}
	total := float64(len(metas))
	allocations := make([]allocation, 0, len(byCategory))
	assigned := 0
	for name, bucket := range byCategory {
		exact := float64(len(bucket)) * float64(target) / total
		quota := int(math.Floor(exact))
		allocations = append(allocations, allocation{name: name, quota: quota, remainder: exact - float64(quota)})
		assigned += quota
	}

	// 余数大者优先补足，满桶跳过
	sort.Slice(allocations, func(i, j int) bool {
		if allocations[i].remainder != allocations[j].remainder {
			return allocations[i].remainder > allocations[j].remainder
		}
		return allocations[i].name < allocations[j].name
	})
	for idx := 0; assigned < target && idx < len(allocations); idx++ {
		if allocations[idx].quota < len(byCategory[allocations[idx].name]) {
			allocations[idx].quota++
			assigned++
		}
	}

	sort.Slice(allocations, func(i, j int) bool { return allocations[i].name < allocations[j].name })
	var selected []int
	for _, alloc := range allocations {
		bucket := byCategory[alloc.name]
		quota := alloc.quota
		if quota > len(bucket) {
			quota = len(bucket)
		}
		selected = append(selected, applyStrategy(bucket, quota, strategy, seed)...)
	}
	return selected
}
