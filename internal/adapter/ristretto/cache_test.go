package ristretto

import (
	"testing"
	"time"
)

func TestMarkThenSeen(t *testing.T) {
	c, err := New(100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if c.Seen("ev-1") {
		t.Error("unmarked key should not be seen")
	}

	c.Mark("ev-1", time.Minute)

	if !c.Seen("ev-1") {
		t.Error("marked key should be seen immediately")
	}
	if c.Seen("ev-2") {
		t.Error("unrelated key should not be seen")
	}
}

func TestMarkExpires(t *testing.T) {
	c, err := New(100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Mark("ev-1", 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	if c.Seen("ev-1") {
		t.Error("key should expire after its TTL")
	}
}
