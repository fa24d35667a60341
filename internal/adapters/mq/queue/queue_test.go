package queue

import (
	"context"
	"testing"
	"time"

	"github.com/okian/randommarket/internal/domain/model"
)

func note(spin string, step int) model.Notification {
	return model.Notification{Kind: model.KindTick, SpinID: spin, Tick: &model.Tick{Step: step}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	stamp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewInMemoryQueue(WithCapacity(2), WithClock(func() time.Time { return stamp }))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, note("s1", 0)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	env := <-q.Dequeue()
	if env.Notification.SpinID != "s1" {
		t.Errorf("expected s1, got %v", env.Notification.SpinID)
	}
	if !env.EnqueuedAt.Equal(stamp) {
		t.Errorf("expected stamp %v, got %v", stamp, env.EnqueuedAt)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, note("s", 0)) || !q.Enqueue(ctx, note("s", 1)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, note("s", 2)) {
		t.Error("expected enqueue to fail when the queue is full")
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Order(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(64))
	ctx := context.Background()

	for i := range 50 {
		q.Notify(ctx, note("s", i))
	}
	_ = q.Close()

	want := 0
	for env := range q.Dequeue() {
		if env.Notification.Tick.Step != want {
			t.Fatalf("expected step %d, got %d", want, env.Notification.Tick.Step)
		}
		want++
	}
	if want != 50 {
		t.Errorf("expected 50 envelopes, got %d", want)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("new queue should not be closed")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("queue should report closed")
	}
	if q.Enqueue(ctx, note("s", 0)) {
		t.Error("enqueue after close should fail")
	}
	if _, ok := <-q.Dequeue(); ok {
		t.Error("dequeue channel should be closed")
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if q.Enqueue(ctx, note("s", 0)) {
		t.Error("enqueue with a cancelled context should fail")
	}
}
