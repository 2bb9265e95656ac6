// Package testutil 提供测试辅助工具
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/store"
)

// WriteFile 在指定目录写入测试文件并返回路径
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", name, err)
	}
	return path
}

// SampleJSONL 生成 n 条指令记录的 JSON-Lines 文本。
// 类别在 alpha/beta/gamma 间轮换，score 为 id 的十分之一。
func SampleJSONL(n int) string {
	categories := []string{"alpha", "beta", "gamma"}
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `{"instruction":"question number %d","output":"answer number %d","category":%q,"score":%g}`,
			i, i, categories[i%len(categories)], float64(i)/10)
		b.WriteByte('\n')
	}
	return b.String()
}

// NewStore 由原始记录构建内存记录表，id 按传入顺序分配
func NewStore(fields []string, raws ...map[string]any) *store.Store {
	ds := &store.Store{
		ID:     "test-dataset",
		Format: model.FormatJSONL,
		Fields: fields,
	}
	for i, raw := range raws {
		ds.Records = append(ds.Records, model.Record{ID: i, Raw: raw})
	}
	return ds
}

// NopEmit 丢弃进度上报
func NopEmit(current, total int, message string) {}

// NeverCancelled 永不取消
func NeverCancelled() bool { return false }

// AlwaysCancelled 始终取消
func AlwaysCancelled() bool { return true }
