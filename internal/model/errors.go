package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat 文件扩展名无法识别
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	// ErrTaskBusy 已有任务在运行
	ErrTaskBusy = errors.New("another task is already running")
	// ErrNotFound 记录 id 越界
	ErrNotFound = errors.New("record not found")
	// ErrNoDataset 尚未导入数据集
	ErrNoDataset = errors.New("no dataset loaded")
	// ErrNoSelection 尚无蒸馏预览结果
	ErrNoSelection = errors.New("no distillation preview available")
	// ErrCancelled 任务被用户取消，属终止状态而非故障
	ErrCancelled = errors.New("task cancelled")
)

// ParseError 带位置信息的解析错误
type ParseError struct {
	Location string
	Err      error
}

// Error 实现 error 接口
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %v", e.Location, e.Err)
}

// Unwrap 返回底层错误
func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError 创建解析错误
func NewParseError(location string, err error) *ParseError {
	return &ParseError{Location: location, Err: err}
}

// ValidationError 无效的过滤/蒸馏/预览配置
type ValidationError struct {
	Msg string
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return "invalid configuration: " + e.Msg
}

// NewValidationError 创建配置校验错误
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IOError 文件读写错误
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error 实现 error 接口
func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap 返回底层错误
func (e *IOError) Unwrap() error { return e.Err }

// NewIOError 创建文件读写错误
func NewIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}
