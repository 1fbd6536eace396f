package util

import (
	"testing"
	"time"
)

func TestSkipThrottler(t *testing.T) {
	t.Parallel()
	tt := NewSkipThrottler(time.Hour)
	if !tt.Ok() {
		t.Fatalf("first call skipped")
	}
	if tt.Ok() {
		t.Fatalf("admitted inside the window")
	}

	short := NewSkipThrottler(time.Millisecond)
	if !short.Ok() {
		t.Fatalf("first call skipped")
	}
	time.Sleep(5 * time.Millisecond)
	if !short.Ok() {
		t.Fatalf("skipped after the window elapsed")
	}
}
