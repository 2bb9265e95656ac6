// Package model 定义引擎各层共享的数据结构
package model

// 数据集格式
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// 长度统计范围
const (
	ScopeInstruction = "instruction"
	ScopeOutput      = "output"
	ScopeCombined    = "combined"
)

// 蒸馏策略
const (
	StrategyRandom     = "random"
	StrategyDiversity  = "diversity"
	StrategyImportance = "importance"
)

// 逻辑视图
const (
	ViewAll      = "all"
	ViewFiltered = "filtered"
	ViewSelected = "selected"
	ViewRemoved  = "removed"
)

// Record 数据集中的一条记录，id 在数据集生命周期内稳定且连续
type Record struct {
	ID  int            `json:"id"`
	Raw map[string]any `json:"raw"`
}

// DatasetSummary 导入成功后返回的数据集摘要
type DatasetSummary struct {
	ID          string   `json:"id"`
	SourcePath  string   `json:"sourcePath"`
	Format      string   `json:"format"`
	RecordCount int      `json:"recordCount"`
	Fields      []string `json:"fields"`
	SizeBytes   int64    `json:"sizeBytes"`
}

// FieldMap 语义角色到原始字段名的绑定，空串表示未绑定
type FieldMap struct {
	Instruction string `json:"instruction,omitempty"`
	Output      string `json:"output,omitempty"`
	Code        string `json:"code,omitempty"`
	Category    string `json:"category,omitempty"`
	Score       string `json:"score,omitempty"`
}

// FilterConfig 过滤配置
type FilterConfig struct {
	RequireFields        []string `json:"requireFields"`
	MinLength            *int     `json:"minLength,omitempty"`
	MaxLength            *int     `json:"maxLength,omitempty"`
	IncludeKeywords      []string `json:"includeKeywords"`
	ExcludeKeywords      []string `json:"excludeKeywords"`
	CategoryField        string   `json:"categoryField,omitempty"`
	Categories           []string `json:"categories"`
	DedupeExact          bool     `json:"dedupeExact"`
	DedupeFuzzy          bool     `json:"dedupeFuzzy"`
	LengthScope          string   `json:"lengthScope"`
	KeywordCaseSensitive bool     `json:"keywordCaseSensitive"`
}

// DefaultFilterConfig 默认过滤配置
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		DedupeExact: true,
		LengthScope: ScopeInstruction,
	}
}

// DistillConfig 蒸馏配置，targetCount 与 targetPercent 二选一
type DistillConfig struct {
	TargetCount             *int     `json:"targetCount,omitempty"`
	TargetPercent           *float64 `json:"targetPercent,omitempty"`
	Strategy                string   `json:"strategy"`
	RandomSeed              *int64   `json:"randomSeed,omitempty"`
	PreserveCategoryBalance bool     `json:"preserveCategoryBalance"`
}

// DefaultDistillConfig 默认蒸馏配置
func DefaultDistillConfig() DistillConfig {
	percent := 10.0
	return DistillConfig{
		TargetPercent: &percent,
		Strategy:      StrategyDiversity,
	}
}

// 过滤规则名，记录在 FilterVerdict.FailedRule 中
const (
	RuleRequiredFields  = "required_fields"
	RuleMinLength       = "min_length"
	RuleMaxLength       = "max_length"
	RuleIncludeKeywords = "include_keywords"
	RuleExcludeKeywords = "exclude_keywords"
	RuleCategory        = "category"
	RuleDedupeExact     = "dedupe_exact"
	RuleDedupeFuzzy     = "dedupe_fuzzy"
)

// FilterVerdict 单条记录的过滤结论，FailedRule 为首个未通过的规则
type FilterVerdict struct {
	Included   bool   `json:"included"`
	FailedRule string `json:"failedRule,omitempty"`
}

// FilterSummary 过滤结果摘要，DuplicatesRemoved 仅统计去重规则丢弃的记录
type FilterSummary struct {
	TotalCount        int `json:"totalCount"`
	FilteredCount     int `json:"filteredCount"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
}

// DistillSummary 蒸馏结果摘要，TotalCount 为过滤后的记录数
type DistillSummary struct {
	TotalCount    int `json:"totalCount"`
	SelectedCount int `json:"selectedCount"`
	RemovedCount  int `json:"removedCount"`
}

// ManualChange 手动勾选变更
type ManualChange struct {
	ID      int  `json:"id"`
	Include bool `json:"include"`
}

// CategoryCount 类别及其记录数
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// 预览单元格类型
const (
	CellText = "text"
	CellCode = "code"
	CellMeta = "meta"
)

// PreviewField 预览单元格
type PreviewField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Kind  string `json:"kind"`
}

// PreviewItem 单条记录的预览
type PreviewItem struct {
	ID     int            `json:"id"`
	Fields []PreviewField `json:"fields"`
}

// PreviewPage 预览分页结果，TotalCount 为视图全长而非本页长度
type PreviewPage struct {
	Items      []PreviewItem `json:"items"`
	TotalCount int           `json:"totalCount"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
}

// ProgressEvent 长任务进度事件，按批次而非逐条发出
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

// Settings 由外部存储持有的持久化设置，引擎启动时读取、变更后写回
type Settings struct {
	LastPath string        `json:"lastPath,omitempty"`
	Language string        `json:"language,omitempty"`
	FieldMap FieldMap      `json:"fieldMap"`
	Filters  FilterConfig  `json:"filters"`
	Distill  DistillConfig `json:"distill"`
}
