package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// syncBuffer makes bytes.Buffer safe for the aggregator's flush goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Split(bytes.TrimSpace(b.buf.Bytes()), []byte("\n"))
}

func TestAggregatorRecord(t *testing.T) {
	out := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(out, nil))
	agg := NewAggregator(logger, 60)

	agg.Record(CompDiscovery, "status_working", slog.String("agent", "claude"))
	agg.Record(CompDiscovery, "status_working", slog.String("agent", "claude"))
	agg.Record(CompDiscovery, "status_working", slog.String("agent", "claude"))
	agg.Record(CompTmux, "capture_cache_hit")

	agg.flush()

	var records []map[string]any
	for _, line := range out.Lines() {
		if len(line) == 0 {
			continue
		}
		var r map[string]any
		if err := json.Unmarshal(line, &r); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		records = append(records, r)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 summary records, got %d", len(records))
	}

	found := false
	for _, r := range records {
		if r["event"] == "status_working" && r["msg"] == "event_summary" {
			if count, ok := r["count"].(float64); !ok || count != 3 {
				t.Errorf("expected count=3, got %v", r["count"])
			}
			if r["agent"] != "claude" {
				t.Errorf("expected agent attr carried through, got %v", r["agent"])
			}
			found = true
		}
	}
	if !found {
		t.Error("status_working summary not found in output")
	}
}

func TestAggregatorFlushResetsCounts(t *testing.T) {
	out := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(out, nil))
	agg := NewAggregator(logger, 60)

	agg.Record(CompDiscovery, "status_idle")
	agg.flush()
	agg.flush() // nothing pending; must not emit again

	lines := out.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 summary line, got %d", len(lines))
	}
}

func TestAggregatorNilLogger(t *testing.T) {
	agg := NewAggregator(nil, 1)
	agg.Start()

	// Must not panic.
	agg.Record(CompDiscovery, "test_event")

	time.Sleep(1200 * time.Millisecond)
	agg.Stop()
}

func TestAggregatorStopFlushes(t *testing.T) {
	out := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(out, nil))
	agg := NewAggregator(logger, 3600) // never auto-flushes during the test
	agg.Start()

	agg.Record(CompSummary, "request_sent")
	agg.Stop()

	lines := out.Lines()
	if len(lines) != 1 || !bytes.Contains(lines[0], []byte("request_sent")) {
		t.Fatalf("expected Stop to flush pending events, got %q", lines)
	}
}
