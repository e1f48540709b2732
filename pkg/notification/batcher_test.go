package notification_test

import (
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/idlewatch/pkg/notification"
	"github.com/Veraticus/idlewatch/pkg/testutil"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]notification.Notification
}

func (r *batchRecorder) callback(ns []notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]notification.Notification(nil), ns...))
}

func (r *batchRecorder) sizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	sizes := make([]int, len(r.batches))
	for i, b := range r.batches {
		sizes[i] = len(b)
	}
	return sizes
}

func TestBatcher_Add(t *testing.T) {
	type add struct {
		advance time.Duration
		title   string
	}

	tests := []struct {
		name      string
		window    time.Duration
		adds      []add
		wantSizes []int
	}{
		{
			name:      "single batch within window",
			window:    100 * time.Millisecond,
			adds:      []add{{0, "1"}, {10 * time.Millisecond, "2"}, {10 * time.Millisecond, "3"}},
			wantSizes: []int{3},
		},
		{
			name:      "multiple batches across windows",
			window:    50 * time.Millisecond,
			adds:      []add{{0, "1"}, {100 * time.Millisecond, "2"}, {10 * time.Millisecond, "3"}},
			wantSizes: []int{1, 2},
		},
		{
			name:      "window starts at first add",
			window:    50 * time.Millisecond,
			adds:      []add{{time.Second, "1"}, {40 * time.Millisecond, "2"}},
			wantSizes: []int{2},
		},
		{
			name:      "no notifications",
			window:    50 * time.Millisecond,
			wantSizes: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testutil.NewFakeClock()
			rec := &batchRecorder{}
			batcher := notification.NewBatcher(tt.window, clock, rec.callback)

			for _, a := range tt.adds {
				clock.Advance(a.advance)
				batcher.Add(notification.Notification{Title: a.title})
			}
			clock.Advance(tt.window)

			got := rec.sizes()
			if len(got) != len(tt.wantSizes) {
				t.Fatalf("got %d batches %v, want %v", len(got), got, tt.wantSizes)
			}
			for i := range got {
				if got[i] != tt.wantSizes[i] {
					t.Errorf("batch[%d] size = %d, want %d", i, got[i], tt.wantSizes[i])
				}
			}
		})
	}
}

func TestBatcher_Flush(t *testing.T) {
	clock := testutil.NewFakeClock()
	rec := &batchRecorder{}
	batcher := notification.NewBatcher(time.Hour, clock, rec.callback)

	batcher.Flush()
	if len(rec.sizes()) != 0 {
		t.Fatal("Flush of an empty batcher should not call back")
	}

	batcher.Add(notification.Notification{Title: "1"})
	batcher.Add(notification.Notification{Title: "2"})
	if batcher.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", batcher.Pending())
	}

	batcher.Flush()

	if got := rec.sizes(); len(got) != 1 || got[0] != 2 {
		t.Errorf("batches = %v, want [2]", got)
	}
	if clock.Pending() != 0 {
		t.Error("Flush should stop the window timer")
	}

	clock.Advance(2 * time.Hour)
	if got := rec.sizes(); len(got) != 1 {
		t.Errorf("window timer fired after Flush: %v", got)
	}
}
