package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/testutil"
)

var testFieldMap = model.FieldMap{Instruction: "instruction", Output: "output", Category: "category"}

func record(instruction, output string, extra map[string]any) map[string]any {
	raw := map[string]any{"instruction": instruction, "output": output}
	for key, value := range extra {
		raw[key] = value
	}
	return raw
}

func intPtr(v int) *int { return &v }

// ========== 规则判定测试 ==========

func TestApplyNoRules(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output"},
		record("what is go", "a language", nil),
		record("what is rust", "another language", nil),
	)

	svc := NewService(1000, 3)
	result, err := svc.Apply(ds, model.FilterConfig{}, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if !reflect.DeepEqual(result.FilteredIDs, []int{0, 1}) {
		t.Errorf("FilteredIDs = %v, want [0 1]", result.FilteredIDs)
	}
	if result.Summary.FilteredCount != 2 || result.Summary.TotalCount != 2 {
		t.Errorf("Summary = %+v", result.Summary)
	}
}

func TestApplyRequiredFieldsDefault(t *testing.T) {
	// 未显式给出必填字段时，默认要求映射到的 instruction/output 非空
	ds := testutil.NewStore([]string{"instruction", "output"},
		record("has both", "yes", nil),
		record("missing output", "", nil),
		record("whitespace output", "   ", nil),
	)

	svc := NewService(1000, 3)
	result, err := svc.Apply(ds, model.FilterConfig{}, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if !reflect.DeepEqual(result.FilteredIDs, []int{0}) {
		t.Errorf("FilteredIDs = %v, want [0]", result.FilteredIDs)
	}
	for _, id := range []int{1, 2} {
		if result.Verdicts[id].FailedRule != model.RuleRequiredFields {
			t.Errorf("Verdicts[%d].FailedRule = %q, want required_fields", id, result.Verdicts[id].FailedRule)
		}
	}
}

func TestApplyLengthRange(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output"},
		record("ok", "a", nil),
		record("this one is fine", "a", nil),
		record("this instruction is definitely far too long", "a", nil),
	)

	cfg := model.FilterConfig{MinLength: intPtr(5), MaxLength: intPtr(20), LengthScope: model.ScopeInstruction}
	svc := NewService(1000, 3)
	result, err := svc.Apply(ds, cfg, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if result.Verdicts[0].FailedRule != model.RuleMinLength {
		t.Errorf("Verdicts[0].FailedRule = %q, want min_length", result.Verdicts[0].FailedRule)
	}
	if !result.Verdicts[1].Included {
		t.Errorf("Verdicts[1] = %+v, want included", result.Verdicts[1])
	}
	if result.Verdicts[2].FailedRule != model.RuleMaxLength {
		t.Errorf("Verdicts[2].FailedRule = %q, want max_length", result.Verdicts[2].FailedRule)
	}
}

func TestApplyKeywords(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output"},
		record("explain GoLang channels", "text", nil),
		record("explain python decorators", "text", nil),
		record("golang but deprecated content", "text", nil),
	)

	cfg := model.FilterConfig{
		IncludeKeywords: []string{"golang"},
		ExcludeKeywords: []string{"DEPRECATED"},
	}
	svc := NewService(1000, 3)
	result, err := svc.Apply(ds, cfg, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	// 关键词默认忽略大小写
	if !result.Verdicts[0].Included {
		t.Errorf("Verdicts[0] = %+v, want included", result.Verdicts[0])
	}
	if result.Verdicts[1].FailedRule != model.RuleIncludeKeywords {
		t.Errorf("Verdicts[1].FailedRule = %q, want include_keywords", result.Verdicts[1].FailedRule)
	}
	if result.Verdicts[2].FailedRule != model.RuleExcludeKeywords {
		t.Errorf("Verdicts[2].FailedRule = %q, want exclude_keywords", result.Verdicts[2].FailedRule)
	}
}

func TestApplyKeywordsCaseSensitive(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output"},
		record("explain GoLang channels", "text", nil),
	)

	cfg := model.FilterConfig{IncludeKeywords: []string{"golang"}, KeywordCaseSensitive: true}
	svc := NewService(1000, 3)
	result, err := svc.Apply(ds, cfg, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if result.Verdicts[0].FailedRule != model.RuleIncludeKeywords {
		t.Errorf("Verdicts[0].FailedRule = %q, want include_keywords", result.Verdicts[0].FailedRule)
	}
}

func TestApplyCategoryWhitelist(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output", "category"},
		record("q0", "a0", map[string]any{"category": "Alpha"}),
		record("q1", "a1", map[string]any{"category": "beta"}),
		record("q2", "a2", nil),
	)

	cfg := model.FilterConfig{Categories: []string{"alpha"}}
	svc := NewService(1000, 3)
	result, err := svc.Apply(ds, cfg, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	// 类别比较忽略大小写，字段名取映射的 category
	if !result.Verdicts[0].Included {
		t.Errorf("Verdicts[0] = %+v, want included", result.Verdicts[0])
	}
	if result.Verdicts[1].FailedRule != model.RuleCategory {
		t.Errorf("Verdicts[1].FailedRule = %q, want category", result.Verdicts[1].FailedRule)
	}
	if result.Verdicts[2].FailedRule != model.RuleCategory {
		t.Errorf("Verdicts[2].FailedRule = %q, want category", result.Verdicts[2].FailedRule)
	}
}

func TestApplyRuleOrder(t *testing.T) {
	// 同时违反长度与排除关键词时，记录首个失败的规则
	ds := testutil.NewStore([]string{"instruction", "output"},
		record("bad", "a", nil),
	)

	cfg := model.FilterConfig{MinLength: intPtr(10), ExcludeKeywords: []string{"bad"}}
	svc := NewService(1000, 3)
	result, err := svc.Apply(ds, cfg, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if result.Verdicts[0].FailedRule != model.RuleMinLength {
		t.Errorf("Verdicts[0].FailedRule = %q, want min_length", result.Verdicts[0].FailedRule)
	}
}

// ========== 去重测试 ==========

func TestApplyDedupeExact(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output"},
		record("Hello   World", "Foo", nil),
		record("hello world", "foo", nil),
		record("something else", "bar", nil),
	)

	cfg := model.FilterConfig{DedupeExact: true}
	svc := NewService(1000, 3)
	result, err := svc.Apply(ds, cfg, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	// 同指纹按 id 序保留首条
	if !reflect.DeepEqual(result.FilteredIDs, []int{0, 2}) {
		t.Errorf("FilteredIDs = %v, want [0 2]", result.FilteredIDs)
	}
	if result.Verdicts[1].FailedRule != model.RuleDedupeExact {
		t.Errorf("Verdicts[1].FailedRule = %q, want dedupe_exact", result.Verdicts[1].FailedRule)
	}
	if result.Summary.DuplicatesRemoved != 1 {
		t.Errorf("DuplicatesRemoved = %d, want 1", result.Summary.DuplicatesRemoved)
	}

	// 同配置重跑结论一致
	again, err := svc.Apply(ds, cfg, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if again.Summary != result.Summary {
		t.Errorf("repeated Apply() summary = %+v, want %+v", again.Summary, result.Summary)
	}
}

func TestApplyDedupeFuzzy(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output"},
		record("explain the concept of channels in golang", "long answer", nil),
		record("explain the concept of channels in golang", "long answer", nil),
		record("database migrations with postgres schemas", "different answer", nil),
	)

	cfg := model.FilterConfig{DedupeFuzzy: true}
	svc := NewService(1000, 3)
	result, err := svc.Apply(ds, cfg, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if result.Verdicts[1].FailedRule != model.RuleDedupeFuzzy {
		t.Errorf("Verdicts[1].FailedRule = %q, want dedupe_fuzzy", result.Verdicts[1].FailedRule)
	}
	if !result.Verdicts[2].Included {
		t.Errorf("Verdicts[2] = %+v, unrelated record must survive", result.Verdicts[2])
	}
	if result.Summary.DuplicatesRemoved != 1 {
		t.Errorf("DuplicatesRemoved = %d, want 1", result.Summary.DuplicatesRemoved)
	}
}

func TestApplyDedupeOnlySeesSurvivors(t *testing.T) {
	// 首条被前序规则剔除时不注册指纹，后续同文记录应保留
	ds := testutil.NewStore([]string{"instruction", "output", "extra"},
		record("same text", "same answer", nil),
		record("same text", "same answer", map[string]any{"extra": "present"}),
	)

	cfg := model.FilterConfig{RequireFields: []string{"extra"}, DedupeExact: true}
	svc := NewService(1000, 3)
	result, err := svc.Apply(ds, cfg, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if result.Verdicts[0].FailedRule != model.RuleRequiredFields {
		t.Errorf("Verdicts[0].FailedRule = %q, want required_fields", result.Verdicts[0].FailedRule)
	}
	if !result.Verdicts[1].Included {
		t.Errorf("Verdicts[1] = %+v, want included", result.Verdicts[1])
	}
	if result.Summary.DuplicatesRemoved != 0 {
		t.Errorf("DuplicatesRemoved = %d, want 0", result.Summary.DuplicatesRemoved)
	}
}

// ========== 配置与取消测试 ==========

func TestApplyInvalidConfig(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output"}, record("q", "a", nil))

	cfg := model.FilterConfig{MinLength: intPtr(-1)}
	svc := NewService(1000, 3)
	_, err := svc.Apply(ds, cfg, testFieldMap, testutil.NopEmit, testutil.NeverCancelled)

	var validationErr *model.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Apply() error = %v, want ValidationError", err)
	}
}

func TestApplyCancelled(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output"},
		record("q0", "a0", nil),
		record("q1", "a1", nil),
		record("q2", "a2", nil),
	)

	svc := NewService(1, 3)
	if _, err := svc.Apply(ds, model.FilterConfig{}, testFieldMap, testutil.NopEmit, testutil.AlwaysCancelled); !errors.Is(err, model.ErrCancelled) {
		t.Errorf("Apply() error = %v, want ErrCancelled", err)
	}
}

// ========== 类别统计测试 ==========

func TestCollectCategories(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output", "category"},
		record("q0", "a0", map[string]any{"category": "beta"}),
		record("q1", "a1", map[string]any{"category": "alpha"}),
		record("q2", "a2", map[string]any{"category": "beta"}),
		record("q3", "a3", map[string]any{"category": "alpha"}),
		record("q4", "a4", map[string]any{"category": "gamma"}),
		record("q5", "a5", nil),
	)

	got := CollectCategories(ds, "category")
	want := []model.CategoryCount{
		{Name: "alpha", Count: 2},
		{Name: "beta", Count: 2},
		{Name: "gamma", Count: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectCategories() = %v, want %v", got, want)
	}
}
