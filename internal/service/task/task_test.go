package task

import (
	"errors"
	"testing"
	"time"

	"github.com/ashwinyue/datalab/internal/model"
)

// ========== 串行化测试 ==========

func TestRunRejectsConcurrentTask(t *testing.T) {
	coord := NewCoordinator()
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		coord.Run("long", func(emit EmitFunc, cancelled CancelledFunc) error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	if err := coord.Run("second", func(emit EmitFunc, cancelled CancelledFunc) error { return nil }); !errors.Is(err, model.ErrTaskBusy) {
		t.Errorf("Run() error = %v, want ErrTaskBusy", err)
	}
	if err := coord.Exclusive(func() error { return nil }); !errors.Is(err, model.ErrTaskBusy) {
		t.Errorf("Exclusive() error = %v, want ErrTaskBusy", err)
	}
	close(release)
}

func TestExclusiveSharesRunningSlot(t *testing.T) {
	coord := NewCoordinator()
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		coord.Exclusive(func() error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	if err := coord.Run("task", func(emit EmitFunc, cancelled CancelledFunc) error { return nil }); !errors.Is(err, model.ErrTaskBusy) {
		t.Errorf("Run() during Exclusive error = %v, want ErrTaskBusy", err)
	}
	close(release)
}

// ========== 状态机测试 ==========

func TestRunStateTransitions(t *testing.T) {
	coord := NewCoordinator()

	if got := coord.Status().State; got != StateIdle {
		t.Errorf("initial state = %q, want idle", got)
	}

	if err := coord.Run("ok", func(emit EmitFunc, cancelled CancelledFunc) error { return nil }); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if status := coord.Status(); status.State != StateCompleted || status.Name != "ok" {
		t.Errorf("Status() = %+v, want completed ok", status)
	}

	wantErr := errors.New("boom")
	if err := coord.Run("bad", func(emit EmitFunc, cancelled CancelledFunc) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
	if status := coord.Status(); status.State != StateFailed || status.Error != "boom" {
		t.Errorf("Status() = %+v, want failed with boom", status)
	}
}

func TestRunCancellation(t *testing.T) {
	coord := NewCoordinator()

	err := coord.Run("work", func(emit EmitFunc, cancelled CancelledFunc) error {
		coord.Cancel()
		if cancelled() {
			return model.ErrCancelled
		}
		return nil
	})
	if !errors.Is(err, model.ErrCancelled) {
		t.Fatalf("Run() error = %v, want ErrCancelled", err)
	}
	if got := coord.Status().State; got != StateCancelled {
		t.Errorf("Status().State = %q, want cancelled", got)
	}

	// 取消标志不得泄漏到下一个任务
	err = coord.Run("next", func(emit EmitFunc, cancelled CancelledFunc) error {
		if cancelled() {
			return model.ErrCancelled
		}
		return nil
	})
	if err != nil {
		t.Errorf("Run() after cancel error = %v, want nil", err)
	}
}

// ========== 进度广播测试 ==========

func TestSubscribeReceivesProgress(t *testing.T) {
	coord := NewCoordinator()
	events, unsubscribe := coord.Subscribe()
	defer unsubscribe()

	err := coord.Run("import", func(emit EmitFunc, cancelled CancelledFunc) error {
		emit(10, 100, "working")
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	select {
	case event := <-events:
		if event.Stage != "import" || event.Current != 10 || event.Total != 100 {
			t.Errorf("event = %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("no progress event received")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	coord := NewCoordinator()
	events, unsubscribe := coord.Subscribe()

	unsubscribe()
	if _, ok := <-events; ok {
		t.Error("channel still open after unsubscribe")
	}

	// 退订后发布不得阻塞或 panic
	coord.Run("noop", func(emit EmitFunc, cancelled CancelledFunc) error {
		emit(1, 1, "done")
		return nil
	})
}

func TestPublishDropsWhenSubscriberSlow(t *testing.T) {
	coord := NewCoordinator()
	events, unsubscribe := coord.Subscribe()
	defer unsubscribe()

	// 超出缓冲的事件被丢弃，任务不被慢消费者阻塞
	err := coord.Run("burst", func(emit EmitFunc, cancelled CancelledFunc) error {
		for i := 0; i < 100; i++ {
			emit(i, 100, "tick")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	received := 0
	for {
		select {
		case <-events:
			received++
		default:
			if received == 0 || received > 16 {
				t.Errorf("received %d events, want between 1 and 16", received)
			}
			return
		}
	}
}
