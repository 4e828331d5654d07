package status

import (
	"sync"
	"time"

	"policy-notifier/notify"
	"policy-notifier/watch"
)

// Snapshot 是 /status 返回的内容。
type Snapshot struct {
	Path         string     `json:"path"`
	Endpoint     string     `json:"endpoint"`
	StartedAt    time.Time  `json:"started_at"`
	Changes      uint64     `json:"changes"`
	Delivered    uint64     `json:"delivered"`
	Failed       uint64     `json:"failed"`
	LastChangeAt *time.Time `json:"last_change_at,omitempty"`
	LastStatus   int        `json:"last_status,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// Stats 统计投递结果，实现 notify.Recorder。
type Stats struct {
	mu       sync.Mutex
	snap     Snapshot
	endpoint func() string
}

func NewStats(path string, endpoint func() string) *Stats {
	return &Stats{
		snap:     Snapshot{Path: path, StartedAt: time.Now()},
		endpoint: endpoint,
	}
}

func (s *Stats) Record(ev watch.ChangeEvent, o notify.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Changes++
	at := ev.DetectedAt
	s.snap.LastChangeAt = &at
	s.snap.LastStatus = o.StatusCode
	if o.OK() {
		s.snap.Delivered++
		s.snap.LastError = ""
		return
	}
	s.snap.Failed++
	s.snap.LastError = o.Err.Error()
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	out := s.snap
	s.mu.Unlock()
	if s.endpoint != nil {
		out.Endpoint = s.endpoint()
	}
	return out
}
