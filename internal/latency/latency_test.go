package latency

import (
	"context"
	"testing"
	"time"
)

func TestSleep_ZeroIsNoOp(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 0); err != nil {
		t.Fatalf("Sleep(0) returned %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Sleep(0) took %v", elapsed)
	}
}

func TestSleep_NegativeIsNoOp(t *testing.T) {
	if err := Sleep(context.Background(), -100); err != nil {
		t.Fatalf("Sleep(-100) returned %v", err)
	}
}

func TestSleep_WaitsAtLeastTheDelay(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 50); err != nil {
		t.Fatalf("Sleep returned %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Sleep woke early after %v", elapsed)
	}
}

func TestSleep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, 5000)
	if err == nil {
		t.Fatal("expected context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled Sleep blocked for %v", elapsed)
	}
}

func TestSleep_CancelMidDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Sleep(ctx, 5000)
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
