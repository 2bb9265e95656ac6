// Package export 将视图记录流式写出为 JSON 或 CSV
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/task"
	"github.com/ashwinyue/datalab/internal/store"
)

// Service 导出服务
type Service struct {
	batchSize int
}

// NewService 创建导出服务
func NewService(batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Service{batchSize: batchSize}
}

// Export 导出原始字段（不套用角色映射）。先写入临时文件，
// 成功后改名到目标路径；失败或取消时删除临时文件，不留半成品。
func (s *Service) Export(ds *store.Store, ids []int, path, format string, emit task.EmitFunc, cancelled task.CancelledFunc) error {
	if !model.ValidExportFormat(format) {
		return model.NewValidationError("unknown export format %q", format)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return model.NewIOError("create", tmpPath, err)
	}

	writeErr := s.write(file, ds, ids, format, emit, cancelled)
	closeErr := file.Close()
	if writeErr == nil && closeErr != nil {
		writeErr = model.NewIOError("close", tmpPath, closeErr)
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		return writeErr
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return model.NewIOError("rename", path, err)
	}
	emit(len(ids), len(ids), "Export complete")
	return nil
}

func (s *Service) write(file *os.File, ds *store.Store, ids []int, format string, emit task.EmitFunc, cancelled task.CancelledFunc) error {
	if format == model.FormatCSV {
		return s.writeCSV(file, ds, ids, emit, cancelled)
	}
	return s.writeJSON(file, ds, ids, emit, cancelled)
}

// writeJSON 输出原始字段映射组成的单个数组
func (s *Service) writeJSON(file *os.File, ds *store.Store, ids []int, emit task.EmitFunc, cancelled task.CancelledFunc) error {
	w := bufio.NewWriter(file)
	if _, err := w.WriteString("["); err != nil {
		return model.NewIOError("write", file.Name(), err)
	}
	for idx, id := range ids {
		if idx%s.batchSize == 0 && idx > 0 {
			if cancelled() {
				return model.ErrCancelled
			}
			emit(idx, len(ids), fmt.Sprintf("Exported %d records", idx))
		}
		record, err := ds.Record(id)
		if err != nil {
			return err
		}
		line, err := json.Marshal(record.Raw)
		if err != nil {
			return model.NewIOError("encode", file.Name(), err)
		}
		if idx > 0 {
			if _, err := w.WriteString(",\n"); err != nil {
				return model.NewIOError("write", file.Name(), err)
			}
		}
		if _, err := w.Write(line); err != nil {
			return model.NewIOError("write", file.Name(), err)
		}
	}
	if _, err := w.WriteString("]"); err != nil {
		return model.NewIOError("write", file.Name(), err)
	}
	if err := w.Flush(); err != nil {
		return model.NewIOError("flush", file.Name(), err)
	}
	return nil
}

// writeCSV 输出数据集声明的表头与逐行记录，缺失字段留空
func (s *Service) writeCSV(file *os.File, ds *store.Store, ids []int, emit task.EmitFunc, cancelled task.CancelledFunc) error {
	w := csv.NewWriter(file)
	if err := w.Write(ds.Fields); err != nil {
		return model.NewIOError("write", file.Name(), err)
	}
	row := make([]string, len(ds.Fields))
	for idx, id := range ids {
		if idx%s.batchSize == 0 && idx > 0 {
			if cancelled() {
				return model.ErrCancelled
			}
			emit(idx, len(ids), fmt.Sprintf("Exported %d records", idx))
		}
		record, err := ds.Record(id)
		if err != nil {
			return err
		}
		for col, field := range ds.Fields {
			if value, ok := store.ExtractValue(record.Raw, field); ok {
				row[col] = store.ValueToString(value)
			} else {
				row[col] = ""
			}
		}
		if err := w.Write(row); err != nil {
			return model.NewIOError("write", file.Name(), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return model.NewIOError("flush", file.Name(), err)
	}
	return nil
}
