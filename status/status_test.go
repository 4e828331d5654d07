package status

import (
	"errors"
	"testing"
	"time"

	"policy-notifier/notify"
	"policy-notifier/watch"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/common/ut"
)

func TestStats_Record(t *testing.T) {
	s := NewStats("doc.txt", func() string { return "http://b/live-update" })
	at := time.Now()
	s.Record(watch.ChangeEvent{Content: "B", DetectedAt: at}, notify.Outcome{StatusCode: 200})
	s.Record(watch.ChangeEvent{Content: "C", DetectedAt: at}, notify.Outcome{StatusCode: 500, Err: errors.New("backend returned status 500")})

	snap := s.Snapshot()
	if snap.Changes != 2 || snap.Delivered != 1 || snap.Failed != 1 {
		t.Fatalf("bad counters: %+v", snap)
	}
	if snap.LastStatus != 500 || snap.LastError == "" || snap.Endpoint != "http://b/live-update" {
		t.Fatalf("bad last: %+v", snap)
	}

	s.Record(watch.ChangeEvent{Content: "D", DetectedAt: at}, notify.Outcome{StatusCode: 204})
	if snap := s.Snapshot(); snap.LastError != "" || snap.Delivered != 2 {
		t.Fatalf("error not cleared: %+v", snap)
	}
}

func TestServer_Health(t *testing.T) {
	h := New("127.0.0.1:0", NewStats("doc.txt", nil))
	w := ut.PerformRequest(h.Engine, "GET", "/health", nil)
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("status: %d", resp.StatusCode())
	}
	var body map[string]string
	if err := sonic.Unmarshal(resp.Body(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("bad body: %s", resp.Body())
	}
}

func TestServer_Status(t *testing.T) {
	stats := NewStats("doc.txt", func() string { return "http://b/" })
	stats.Record(watch.ChangeEvent{Content: "B", DetectedAt: time.Now()}, notify.Outcome{StatusCode: 200})
	h := New("127.0.0.1:0", stats)

	w := ut.PerformRequest(h.Engine, "GET", "/status", nil)
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("status: %d", resp.StatusCode())
	}
	var snap Snapshot
	if err := sonic.Unmarshal(resp.Body(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Path != "doc.txt" || snap.Endpoint != "http://b/" || snap.Delivered != 1 || snap.LastChangeAt == nil {
		t.Fatalf("bad snapshot: %+v", snap)
	}
}
