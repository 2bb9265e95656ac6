// Package task 提供单工作者任务协调：串行化长任务、广播进度、协作式取消
package task

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ashwinyue/datalab/internal/model"
)

// 任务状态机：Idle → Running → {Completed, Failed, Cancelled}，随后回到 Idle
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
	StateCancelled = "cancelled"
)

// Status 当前或最近一次任务的状态
type Status struct {
	Name  string `json:"name,omitempty"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// EmitFunc 任务内上报进度，按批次调用
type EmitFunc func(current, total int, message string)

// CancelledFunc 任务内在批次边界检查取消标志
type CancelledFunc func() bool

// Coordinator 任务协调器。同一时刻至多一个任务在运行，
// 新任务在已有任务运行时启动会得到 ErrTaskBusy。
type Coordinator struct {
	mu      sync.Mutex
	running bool
	status  Status
	cancel  atomic.Bool

	subMu       sync.RWMutex
	subscribers map[int]chan model.ProgressEvent
	nextSub     int
}

// NewCoordinator 创建任务协调器
func NewCoordinator() *Coordinator {
	return &Coordinator{
		status:      Status{State: StateIdle},
		subscribers: make(map[int]chan model.ProgressEvent),
	}
}

// Run 同步执行一个任务。fn 通过 emit 上报进度，通过 cancelled 检查取消；
// 观察到取消后应放弃部分结果并返回 model.ErrCancelled。
func (c *Coordinator) Run(name string, fn func(emit EmitFunc, cancelled CancelledFunc) error) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return model.ErrTaskBusy
	}
	c.running = true
	c.status = Status{Name: name, State: StateRunning}
	c.cancel.Store(false)
	c.mu.Unlock()

	emit := func(current, total int, message string) {
		c.publish(model.ProgressEvent{
			Stage:   name,
			Current: current,
			Total:   total,
			Message: message,
		})
	}

	err := fn(emit, c.cancel.Load)

	c.mu.Lock()
	c.running = false
	switch {
	case err == nil:
		c.status = Status{Name: name, State: StateCompleted}
	case errors.Is(err, model.ErrCancelled):
		c.status = Status{Name: name, State: StateCancelled}
	default:
		c.status = Status{Name: name, State: StateFailed, Error: err.Error()}
	}
	c.mu.Unlock()

	return err
}

// Exclusive 在无任务运行时执行一段短暂的同步变更。
// 与 Run 共用同一个运行槽位，保证读改写不会与长任务交错。
func (c *Coordinator) Exclusive(fn func() error) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return model.ErrTaskBusy
	}
	c.running = true
	c.mu.Unlock()

	err := fn()

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return err
}

// Cancel 请求取消当前任务，无任务运行时为空操作
func (c *Coordinator) Cancel() {
	c.cancel.Store(true)
}

// Status 返回运行中任务或最近一次任务的状态
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscribe 订阅进度事件，返回事件通道与退订函数。
// 通道带缓冲，消费不及时的事件会被丢弃而不阻塞任务。
func (c *Coordinator) Subscribe() (<-chan model.ProgressEvent, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan model.ProgressEvent, 16)
	c.subscribers[id] = ch

	unsubscribe := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

func (c *Coordinator) publish(evt model.ProgressEvent) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
