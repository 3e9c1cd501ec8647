package querycache

import (
	"testing"
	"time"
)

type sampleResult struct {
	Text string `json:"text"`
}

func TestSetThenGetRoundTrips(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer c.Close()

	if err := c.Set("def Widget", "state-1", sampleResult{Text: "class Widget"}, DefaultTTL); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	var got sampleResult
	ok, err := c.Get("def Widget", "state-1", &got)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Text != "class Widget" {
		t.Errorf("got %+v, want Text=class Widget", got)
	}
}

func TestGetMissesOnStateMismatch(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer c.Close()

	if err := c.Set("def Widget", "state-1", sampleResult{Text: "stale"}, DefaultTTL); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	var got sampleResult
	ok, err := c.Get("def Widget", "state-2", &got)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Error("expected a miss after the index's state fingerprint changed")
	}
}

func TestGetMissesOnExpiry(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer c.Close()

	if err := c.Set("def Widget", "state-1", sampleResult{Text: "x"}, -time.Second); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	var got sampleResult
	ok, err := c.Get("def Widget", "state-1", &got)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Error("expected a miss on an already-expired entry")
	}
}

func TestInvalidateDropsOtherStates(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer c.Close()

	if err := c.Set("def A", "state-1", sampleResult{Text: "a"}, DefaultTTL); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := c.Set("def B", "state-2", sampleResult{Text: "b"}, DefaultTTL); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	if err := c.Invalidate("state-2"); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}

	var got sampleResult
	if ok, _ := c.Get("def A", "state-1", &got); ok {
		t.Error("expected entry tagged with a stale state to be invalidated")
	}
	if ok, _ := c.Get("def B", "state-2", &got); !ok {
		t.Error("expected entry tagged with the current state to survive")
	}
}
