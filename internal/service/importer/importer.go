// Package importer 将 JSON / JSON-Lines / CSV 文件解析为记录表
package importer

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ashwinyue/datalab/internal/model"
	"github.com/ashwinyue/datalab/internal/service/task"
	"github.com/ashwinyue/datalab/internal/store"
)

// maxLineBytes JSONL 单行上限
const maxLineBytes = 16 * 1024 * 1024

// Service 导入服务
type Service struct {
	batchSize int
}

// NewService 创建导入服务
func NewService(batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Service{batchSize: batchSize}
}

// Import 解析文件并构建一张新的记录表。任何一行失败都会使整次导入失败，
// 不做跳行恢复；调用方在成功后才用返回值替换旧数据集。
func (s *Service) Import(path string, emit task.EmitFunc, cancelled task.CancelledFunc) (*store.Store, error) {
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, model.NewIOError("open", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, model.NewIOError("stat", path, err)
	}

	ds := &store.Store{
		ID:         uuid.New().String(),
		SourcePath: path,
		Format:     format,
		SizeBytes:  info.Size(),
	}

	fieldSet := make(map[string]bool)
	appendRecord := func(raw map[string]any) error {
		for key := range raw {
			fieldSet[key] = true
		}
		ds.Records = append(ds.Records, model.Record{ID: len(ds.Records), Raw: raw})
		if len(ds.Records)%s.batchSize == 0 {
			if cancelled() {
				return model.ErrCancelled
			}
			emit(len(ds.Records), 0, fmt.Sprintf("Imported %d records", len(ds.Records)))
		}
		return nil
	}

	switch format {
	case model.FormatJSON:
		err = parseJSONArray(file, appendRecord)
	case model.FormatJSONL:
		err = parseJSONLines(file, appendRecord)
	case model.FormatCSV:
		err = parseCSV(file, ds, appendRecord)
	}
	if err != nil {
		return nil, err
	}

	// CSV 的字段顺序取表头，JSON 系按字典序保证可复现
	if format != model.FormatCSV {
		fields := make([]string, 0, len(fieldSet))
		for name := range fieldSet {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		ds.Fields = fields
	}

	emit(len(ds.Records), len(ds.Records), "Import complete")
	return ds, nil
}

func detectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return model.FormatJSON, nil
	case ".jsonl":
		return model.FormatJSONL, nil
	case ".csv":
		return model.FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", model.ErrUnsupportedFormat, filepath.Ext(path))
}

// parseJSONArray 流式解析顶层 JSON 数组，元素必须是对象
func parseJSONArray(r io.Reader, appendRecord func(map[string]any) error) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return model.NewParseError("document start", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return model.NewParseError("document start", errors.New("top-level value must be an array of objects"))
	}

	idx := 0
	for dec.More() {
		idx++
		var value any
		if err := dec.Decode(&value); err != nil {
			return model.NewParseError(fmt.Sprintf("element %d", idx), err)
		}
		raw, ok := value.(map[string]any)
		if !ok {
			return model.NewParseError(fmt.Sprintf("element %d", idx), errors.New("array element is not an object"))
		}
		if err := appendRecord(raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return model.NewParseError("document end", err)
	}
	return nil
}

// parseJSONLines 逐行解析，空行跳过，坏行带 1 起始行号整体失败
func parseJSONLines(r io.Reader, appendRecord func(map[string]any) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var value any
		if err := dec.Decode(&value); err != nil {
			return model.NewParseError(fmt.Sprintf("line %d", line), err)
		}
		raw, ok := value.(map[string]any)
		if !ok {
			return model.NewParseError(fmt.Sprintf("line %d", line), errors.New("line is not a JSON object"))
		}
		if err := appendRecord(raw); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return model.NewIOError("read", "jsonl", err)
	}
	return nil
}

// parseCSV 首行为表头，列数不符的行带行号整体失败
func parseCSV(r io.Reader, ds *store.Store, appendRecord func(map[string]any) error) error {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return model.NewParseError("row 1", errors.New("missing header row"))
	}
	if err != nil {
		return model.NewParseError("row 1", err)
	}
	ds.Fields = append([]string(nil), header...)

	row := 1
	for {
		row++
		values, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return model.NewParseError(fmt.Sprintf("row %d", row), err)
		}
		raw := make(map[string]any, len(header))
		for idx, name := range header {
			raw[name] = values[idx]
		}
		if err := appendRecord(raw); err != nil {
			return err
		}
	}
}
