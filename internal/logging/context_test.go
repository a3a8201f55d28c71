package logging

import (
	"context"
	"testing"
	"time"
)

func TestDetachContextSurvivesCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	detached := DetachContext(parent)

	cancel()

	if parent.Err() == nil {
		t.Error("parent should be cancelled")
	}
	if detached.Err() != nil {
		t.Errorf("detached context must outlive the parent, got: %v", detached.Err())
	}
}

func TestDetachContextPreservesValues(t *testing.T) {
	type key string
	parent := context.WithValue(context.Background(), key("request_id"), "req-1")

	if v := DetachContext(parent).Value(key("request_id")); v != "req-1" {
		t.Errorf("expected request id to be preserved, got %v", v)
	}
}

func TestDetachContextWithTimeoutHasOwnDeadline(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	detached, cancel := DetachContextWithTimeout(parent, 50*time.Millisecond)
	defer cancel()

	parentCancel()

	if detached.Err() != nil {
		t.Errorf("detached context cancelled too early: %v", detached.Err())
	}

	<-detached.Done()
	if detached.Err() != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got: %v", detached.Err())
	}
}
