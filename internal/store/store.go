// Package store 提供单个已加载数据集的内存记录表
package store

import (
	"github.com/ashwinyue/datalab/internal/model"
)

// Store 规范化后的记录表。导入成功后整体替换，替换前不可见，
// 记录 id 稠密且与下标一致，数据集存续期间不变。
type Store struct {
	ID         string
	SourcePath string
	Format     string
	Fields     []string
	SizeBytes  int64
	Records    []model.Record
}

// Count 返回记录数
func (s *Store) Count() int {
	return len(s.Records)
}

// Record 按 id 取记录，越界返回 ErrNotFound
func (s *Store) Record(id int) (model.Record, error) {
	if id < 0 || id >= len(s.Records) {
		return model.Record{}, model.ErrNotFound
	}
	return s.Records[id], nil
}

// Summary 生成数据集摘要
func (s *Store) Summary() model.DatasetSummary {
	return model.DatasetSummary{
		ID:          s.ID,
		SourcePath:  s.SourcePath,
		Format:      s.Format,
		RecordCount: len(s.Records),
		Fields:      s.Fields,
		SizeBytes:   s.SizeBytes,
	}
}
