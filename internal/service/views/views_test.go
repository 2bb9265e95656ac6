package views

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/distill"
	"github.com/ashwinyue/datalab/internal/store"
	"github.com/ashwinyue/datalab/internal/testutil"
)

func intPtr(v int) *int { return &v }

// makeSelection 通过蒸馏预览构造选择状态，target 为选中数
func makeSelection(t *testing.T, ds *store.Store, filteredIDs []int, target int) *distill.Selection {
	t.Helper()
	cfg := model.DistillConfig{TargetCount: intPtr(target), Strategy: model.StrategyDiversity}
	selection, _, err := distill.NewService(1000).Preview(ds, filteredIDs, cfg, model.FieldMap{}, testutil.NopEmit, testutil.NeverCancelled)
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	return selection
}

func plainStore(n int) *store.Store {
	raws := make([]map[string]any, n)
	for i := range raws {
		raws[i] = map[string]any{"instruction": "q", "output": "a"}
	}
	return testutil.NewStore([]string{"instruction", "output"}, raws...)
}

// ========== 视图解析测试 ==========

func TestResolveViews(t *testing.T) {
	ds := plainStore(5)
	filteredIDs := []int{0, 2, 4}
	selection := makeSelection(t, ds, filteredIDs, 1) // 选中 0

	in := Inputs{
		DatasetVersion: 1, FilterVersion: 1, SelectionVersion: 1,
		Total: 5, FilteredIDs: filteredIDs, Selection: selection,
	}

	resolver := NewResolver()
	tests := []struct {
		view string
		want []int
	}{
		{view: model.ViewAll, want: []int{0, 1, 2, 3, 4}},
		{view: model.ViewFiltered, want: []int{0, 2, 4}},
		{view: model.ViewSelected, want: []int{0}},
		// removed = 过滤剔除的 1、3 加上过滤视图内未选中的 2、4
		{view: model.ViewRemoved, want: []int{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			got, err := resolver.Resolve(tt.view, in)
			if err != nil {
				t.Fatalf("Resolve(%s) error: %v", tt.view, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve(%s) = %v, want %v", tt.view, got, tt.want)
			}
		})
	}
}

func TestResolveBeforeFilterAndDistill(t *testing.T) {
	in := Inputs{DatasetVersion: 1, Total: 3}
	resolver := NewResolver()

	// 未过滤时过滤视图退化为全量
	filtered, err := resolver.Resolve(model.ViewFiltered, in)
	if err != nil {
		t.Fatalf("Resolve(filtered) error: %v", err)
	}
	if !reflect.DeepEqual(filtered, []int{0, 1, 2}) {
		t.Errorf("Resolve(filtered) = %v, want [0 1 2]", filtered)
	}

	// 未蒸馏时选中视图为空
	selected, err := resolver.Resolve(model.ViewSelected, in)
	if err != nil {
		t.Fatalf("Resolve(selected) error: %v", err)
	}
	if len(selected) != 0 {
		t.Errorf("Resolve(selected) = %v, want empty", selected)
	}

	removed, err := resolver.Resolve(model.ViewRemoved, in)
	if err != nil {
		t.Fatalf("Resolve(removed) error: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("Resolve(removed) = %v, want empty", removed)
	}
}

func TestResolveUnknownView(t *testing.T) {
	resolver := NewResolver()
	_, err := resolver.Resolve("everything", Inputs{Total: 1})

	var validationErr *model.ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Resolve() error = %v, want ValidationError", err)
	}
}

func TestResolveCacheInvalidation(t *testing.T) {
	resolver := NewResolver()

	in := Inputs{DatasetVersion: 1, FilterVersion: 1, Total: 4, FilteredIDs: []int{0, 1}}
	first, err := resolver.Resolve(model.ViewFiltered, in)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !reflect.DeepEqual(first, []int{0, 1}) {
		t.Errorf("Resolve() = %v, want [0 1]", first)
	}

	// 过滤版本推进后必须反映新结论，不得吐出旧缓存
	in.FilterVersion = 2
	in.FilteredIDs = []int{2, 3}
	second, err := resolver.Resolve(model.ViewFiltered, in)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if !reflect.DeepEqual(second, []int{2, 3}) {
		t.Errorf("Resolve() after version bump = %v, want [2 3]", second)
	}
}

// ========== 分页渲染测试 ==========

func TestPagePagination(t *testing.T) {
	ds := plainStore(45)
	ids := make([]int, 45)
	for i := range ids {
		ids[i] = i
	}
	previewer := NewPreviewer(480, 160)
	fm := model.FieldMap{Instruction: "instruction", Output: "output"}

	sizes := []int{20, 20, 5}
	for page := 1; page <= 3; page++ {
		result, err := previewer.Page(ds, fm, ids, page, 20)
		if err != nil {
			t.Fatalf("Page(%d) error: %v", page, err)
		}
		if len(result.Items) != sizes[page-1] {
			t.Errorf("Page(%d) items = %d, want %d", page, len(result.Items), sizes[page-1])
		}
		if result.TotalCount != 45 {
			t.Errorf("Page(%d).TotalCount = %d, want 45", page, result.TotalCount)
		}
	}

	// 越界页返回空页而非错误
	result, err := previewer.Page(ds, fm, ids, 4, 20)
	if err != nil {
		t.Fatalf("Page(4) error: %v", err)
	}
	if len(result.Items) != 0 {
		t.Errorf("Page(4) items = %d, want 0", len(result.Items))
	}
}

func TestPageInvalidArguments(t *testing.T) {
	previewer := NewPreviewer(480, 160)
	ds := plainStore(1)

	var validationErr *model.ValidationError
	if _, err := previewer.Page(ds, model.FieldMap{}, []int{0}, 0, 20); !errors.As(err, &validationErr) {
		t.Errorf("Page(page=0) error = %v, want ValidationError", err)
	}
	if _, err := previewer.Page(ds, model.FieldMap{}, []int{0}, 1, 0); !errors.As(err, &validationErr) {
		t.Errorf("Page(pageSize=0) error = %v, want ValidationError", err)
	}
}

func TestPageCellKinds(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction", "output", "snippet", "category"},
		map[string]any{
			"instruction": "short question",
			"output":      "line one\nline two",
			"snippet":     "func main() {}",
			"category":    "alpha",
		},
	)
	fm := model.FieldMap{Instruction: "instruction", Output: "output", Code: "snippet", Category: "category"}

	previewer := NewPreviewer(480, 160)
	result, err := previewer.Page(ds, fm, []int{0}, 1, 10)
	if err != nil {
		t.Fatalf("Page() error: %v", err)
	}

	kinds := map[string]string{}
	for _, field := range result.Items[0].Fields {
		kinds[field.Name] = field.Kind
	}
	if kinds["instruction"] != model.CellText {
		t.Errorf("instruction kind = %q, want text", kinds["instruction"])
	}
	// 含换行的文本按代码渲染
	if kinds["output"] != model.CellCode {
		t.Errorf("output kind = %q, want code", kinds["output"])
	}
	if kinds["snippet"] != model.CellCode {
		t.Errorf("snippet kind = %q, want code", kinds["snippet"])
	}
	if kinds["category"] != model.CellMeta {
		t.Errorf("category kind = %q, want meta", kinds["category"])
	}
}

func TestPageLongTextBecomesCode(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction"},
		map[string]any{"instruction": strings.Repeat("x", 200)},
	)
	previewer := NewPreviewer(480, 160)
	result, err := previewer.Page(ds, model.FieldMap{Instruction: "instruction"}, []int{0}, 1, 10)
	if err != nil {
		t.Fatalf("Page() error: %v", err)
	}
	if got := result.Items[0].Fields[0].Kind; got != model.CellCode {
		t.Errorf("Kind = %q, want code for text over threshold", got)
	}
}

func TestPageTruncates(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction"},
		map[string]any{"instruction": strings.Repeat("a", 600)},
	)
	previewer := NewPreviewer(480, 160)
	result, err := previewer.Page(ds, model.FieldMap{Instruction: "instruction"}, []int{0}, 1, 10)
	if err != nil {
		t.Fatalf("Page() error: %v", err)
	}
	value := result.Items[0].Fields[0].Value
	if len(value) != 483 || !strings.HasSuffix(value, "...") {
		t.Errorf("Value length = %d, want 480 chars plus ellipsis", len(value))
	}
}

func TestPageFallbackFields(t *testing.T) {
	// 一个角色都没绑到值时回退数据集的前两个字段
	ds := testutil.NewStore([]string{"col_a", "col_b", "col_c"},
		map[string]any{"col_a": "first", "col_b": "second", "col_c": "third"},
	)
	previewer := NewPreviewer(480, 160)
	result, err := previewer.Page(ds, model.FieldMap{}, []int{0}, 1, 10)
	if err != nil {
		t.Fatalf("Page() error: %v", err)
	}

	fields := result.Items[0].Fields
	if len(fields) != 2 || fields[0].Name != "col_a" || fields[1].Name != "col_b" {
		t.Errorf("fallback fields = %+v, want col_a and col_b", fields)
	}
}

func TestPageFlattensNestedValues(t *testing.T) {
	ds := testutil.NewStore([]string{"instruction"},
		map[string]any{"instruction": map[string]any{"b": "two", "a": "one"}},
	)
	previewer := NewPreviewer(480, 160)
	result, err := previewer.Page(ds, model.FieldMap{Instruction: "instruction"}, []int{0}, 1, 10)
	if err != nil {
		t.Fatalf("Page() error: %v", err)
	}

	// 嵌套对象按键排序展开为逐行文本
	if got := result.Items[0].Fields[0].Value; got != "a: one\nb: two" {
		t.Errorf("Value = %q, want flattened key: value lines", got)
	}
}
