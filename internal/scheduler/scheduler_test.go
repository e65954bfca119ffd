package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAlignsToInterval(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())

	now := time.Date(2023, 9, 1, 12, 17, 42, 0, time.UTC)
	if got := s.nextTick(now); !got.Equal(time.Date(2023, 9, 1, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("12:17 的下一个周期应为 13:00, 实际 %s", got)
	}

	// 恰好落在周期边界时，应跳到下一个边界而不是立即执行
	boundary := time.Date(2023, 9, 1, 13, 0, 0, 0, time.UTC)
	if got := s.nextTick(boundary); !got.Equal(boundary.Add(time.Hour)) {
		t.Fatalf("边界时刻的下一个周期应为 14:00, 实际 %s", got)
	}
}

func TestNextTickWithoutAlignment(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: false}, zerolog.Nop())

	now := time.Date(2023, 9, 1, 12, 17, 0, 0, time.UTC)
	if got := s.nextTick(now); !got.Equal(now.Add(time.Hour)) {
		t.Fatalf("未对齐模式下一个周期应为 now+interval, 实际 %s", got)
	}
}

func TestRunContinuesAfterFailingCycle(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks atomic.Int32
	err := s.Run(ctx, func(ctx context.Context, cycle time.Time) error {
		switch ticks.Add(1) {
		case 1:
			// 第一个周期失败，循环必须继续
			return errors.New("cycle failed")
		case 3:
			cancel()
		}
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("取消后 Run 应返回 context.Canceled, 实际 %v", err)
	}
	if got := ticks.Load(); got < 3 {
		t.Fatalf("失败的周期不应中断循环, 实际只执行了 %d 次", got)
	}
}

func TestRunHonorsStartupDelayCancellation(t *testing.T) {
	s := New(Options{Interval: time.Hour, StartupDelay: time.Minute}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, func(ctx context.Context, cycle time.Time) error {
		t.Fatal("取消后不应执行任何周期")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("启动延迟期间取消应返回 context.Canceled, 实际 %v", err)
	}
}
