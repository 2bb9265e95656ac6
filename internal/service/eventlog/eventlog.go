// Package eventlog 追加引擎事件日志并支持尾部查询，供外部 UI 展示
package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashwinyue/datalab/internal/model"
)

const fileName = "datalab.log"

// Service 事件日志服务
type Service struct {
	mu   sync.Mutex
	path string
}

// NewService 创建事件日志服务并确保数据目录存在
func NewService(dataDir string) (*Service, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, model.NewIOError("mkdir", dataDir, err)
	}
	return &Service{path: filepath.Join(dataDir, fileName)}, nil
}

// Append 追加一条带时间戳的事件行，写入失败不影响主流程
func (s *Service) Append(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer file.Close()
	fmt.Fprintf(file, "[%s] %s\n", time.Now().UTC().Format(time.RFC3339), message)
}

// Tail 返回最近 limit 条事件行，文件不存在时返回空列表
func (s *Service) Tail(limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, model.NewIOError("open", s.path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, model.NewIOError("read", s.path, err)
	}

	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}
