// Package settings 负责 settings.json 的读写，引擎用它在会话间延续配置
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ashwinyue/datalab/internal/model"
)

const fileName = "settings.json"

// Service 设置持久化服务
type Service struct {
	path string
}

// NewService 创建设置服务并确保数据目录存在
func NewService(dataDir string) (*Service, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, model.NewIOError("mkdir", dataDir, err)
	}
	return &Service{path: filepath.Join(dataDir, fileName)}, nil
}

// Load 读取设置，文件不存在时返回 nil 而非错误
func (s *Service) Load() (*model.Settings, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewIOError("read", s.path, err)
	}
	var settings model.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, model.NewParseError(s.path, err)
	}
	return &settings, nil
}

// Save 原子写回设置
func (s *Service) Save(settings *model.Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return model.NewIOError("encode", s.path, err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return model.NewIOError("write", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return model.NewIOError("rename", s.path, err)
	}
	return nil
}
