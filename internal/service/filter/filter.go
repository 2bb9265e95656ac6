// Package filter 对每条记录求过滤结论，并做精确/模糊去重
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/task"
	"github.com/ashwinyue/datalab/internal/store"
)

// Service 过滤引擎
type Service struct {
	batchSize       int
	fuzzyHammingMax int
}

// NewService 创建过滤引擎
func NewService(batchSize, fuzzyHammingMax int) *Service {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if fuzzyHammingMax <= 0 {
		fuzzyHammingMax = 3
	}
	return &Service{batchSize: batchSize, fuzzyHammingMax: fuzzyHammingMax}
}

// Result 一次过滤的完整产物，结论与产生它的配置同生共死
type Result struct {
	Verdicts    []model.FilterVerdict
	FilteredIDs []int
	Summary     model.FilterSummary
}

// Apply 按固定顺序对全部记录求结论，规则在首个失败处短路。
// 去重规则只作用于通过了前序规则的记录，重复计数也只含去重丢弃。
func (s *Service) Apply(ds *store.Store, cfg model.FilterConfig, fieldMap model.FieldMap, emit task.EmitFunc, cancelled task.CancelledFunc) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 未显式给出必填字段时，默认要求映射到的 instruction/output 字段
	requiredFields := cfg.RequireFields
	if len(requiredFields) == 0 {
		if fieldMap.Instruction != "" {
			requiredFields = append(requiredFields, fieldMap.Instruction)
		}
		if fieldMap.Output != "" {
			requiredFields = append(requiredFields, fieldMap.Output)
		}
	}

	includeKeywords := foldKeywords(cfg.IncludeKeywords, cfg.KeywordCaseSensitive)
	excludeKeywords := foldKeywords(cfg.ExcludeKeywords, cfg.KeywordCaseSensitive)

	categoryField := cfg.CategoryField
	if categoryField == "" {
		categoryField = fieldMap.Category
	}
	allowedCategories := make(map[string]bool, len(cfg.Categories))
	for _, category := range cfg.Categories {
		allowedCategories[strings.ToLower(category)] = true
	}

	scope := cfg.LengthScope
	if scope == "" {
		scope = model.ScopeInstruction
	}

	total := ds.Count()
	result := &Result{
		Verdicts: make([]model.FilterVerdict, total),
		Summary:  model.FilterSummary{TotalCount: total},
	}

	exactSeen := make(map[string]bool)
	fuzzyBuckets := make(map[uint16][]uint64)

	for idx, record := range ds.Records {
		if idx%s.batchSize == 0 && idx > 0 {
			if cancelled() {
				return nil, model.ErrCancelled
			}
			emit(idx, total, fmt.Sprintf("Filtered %d records", idx))
		}

		rule := s.evaluate(record.Raw, requiredFields, includeKeywords, excludeKeywords,
			allowedCategories, categoryField, scope, cfg, fieldMap, exactSeen, fuzzyBuckets)
		if rule == "" {
			result.Verdicts[idx] = model.FilterVerdict{Included: true}
			result.FilteredIDs = append(result.FilteredIDs, record.ID)
			continue
		}
		result.Verdicts[idx] = model.FilterVerdict{FailedRule: rule}
		if rule == model.RuleDedupeExact || rule == model.RuleDedupeFuzzy {
			result.Summary.DuplicatesRemoved++
		}
	}

	result.Summary.FilteredCount = len(result.FilteredIDs)
	emit(total, total, "Filter complete")
	return result, nil
}

// evaluate 返回首个未通过的规则名，全部通过返回空串
func (s *Service) evaluate(raw map[string]any, requiredFields, includeKeywords, excludeKeywords []string,
	allowedCategories map[string]bool, categoryField, scope string,
	cfg model.FilterConfig, fieldMap model.FieldMap,
	exactSeen map[string]bool, fuzzyBuckets map[uint16][]uint64) string {

	// 1. 必填字段
	for _, field := range requiredFields {
		value, ok := store.ExtractValue(raw, field)
		if !ok || strings.TrimSpace(store.ValueToString(value)) == "" {
			return model.RuleRequiredFields
		}
	}

	// 2-3. 长度范围
	lengthText := store.LengthText(raw, fieldMap, scope)
	length := store.TextLength(lengthText)
	if cfg.MinLength != nil && length < *cfg.MinLength {
		return model.RuleMinLength
	}
	if cfg.MaxLength != nil && length > *cfg.MaxLength {
		return model.RuleMaxLength
	}

	// 4-5. 关键词
	keywordText := lengthText
	if !cfg.KeywordCaseSensitive {
		keywordText = strings.ToLower(keywordText)
	}
	for _, keyword := range includeKeywords {
		if !strings.Contains(keywordText, keyword) {
			return model.RuleIncludeKeywords
		}
	}
	for _, keyword := range excludeKeywords {
		if strings.Contains(keywordText, keyword) {
			return model.RuleExcludeKeywords
		}
	}

	// 6. 类别白名单
	if len(allowedCategories) > 0 && categoryField != "" {
		category := strings.ToLower(store.ExtractText(raw, categoryField))
		if !allowedCategories[category] {
			return model.RuleCategory
		}
	}

	// 7. 精确去重，同指纹按 id 序保留首条
	fingerprint := store.Fingerprint(raw, fieldMap)
	if cfg.DedupeExact && fingerprint != "" {
		if exactSeen[fingerprint] {
			return model.RuleDedupeExact
		}
		exactSeen[fingerprint] = true
	}

	// 8. 模糊去重：simhash 按 16 位段分桶，与已保留记录比汉明距离
	if cfg.DedupeFuzzy && fingerprint != "" {
		hash := store.SimHash(fingerprint)
		segments := [4]uint16{
			uint16(hash & 0xFFFF),
			uint16((hash >> 16) & 0xFFFF),
			uint16((hash >> 32) & 0xFFFF),
			uint16((hash >> 48) & 0xFFFF),
		}
		for _, segment := range segments {
			for _, candidate := range fuzzyBuckets[segment] {
				if store.Hamming(candidate, hash) <= s.fuzzyHammingMax {
					return model.RuleDedupeFuzzy
				}
			}
		}
		for _, segment := range segments {
			fuzzyBuckets[segment] = append(fuzzyBuckets[segment], hash)
		}
	}

	return ""
}

// CollectCategories 统计某字段的取值分布，按计数降序、同名升序
func CollectCategories(ds *store.Store, field string) []model.CategoryCount {
	counts := make(map[string]int)
	for _, record := range ds.Records {
		if value, ok := store.ExtractValue(record.Raw, field); ok {
			counts[store.ValueToString(value)]++
		}
	}

	list := make([]model.CategoryCount, 0, len(counts))
	for name, count := range counts {
		list = append(list, model.CategoryCount{Name: name, Count: count})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Name < list[j].Name
	})
	return list
}

func foldKeywords(keywords []string, caseSensitive bool) []string {
	if caseSensitive {
		return keywords
	}
	folded := make([]string, len(keywords))
	for idx, keyword := range keywords {
		folded[idx] = strings.ToLower(keyword)
	}
	return folded
}
