package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	conf "policy-notifier/conf"
	provider "policy-notifier/conf/provider"
)

type staticProv struct {
	payload string
	err     error
}

func (s *staticProv) Open() ([]provider.Content, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []provider.Content{{ID: "s", Group: "test", Payload: s.payload}}, nil
}
func (s *staticProv) Watch(func() error) error { return nil }

func TestLoad_NoProviderUsesDefaults(t *testing.T) {
	l := New(nil)
	opts, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if opts != conf.Default() {
		t.Fatalf("want defaults, got %+v", opts)
	}
	if err := l.Watch(); err != nil {
		t.Fatalf("watch: %v", err)
	}
}

func TestLoad_OverlayWins(t *testing.T) {
	l := New(&staticProv{payload: "notify:\n  url: http://cfg:1/\n"})
	l.SetOverlay(func(o *conf.Options) { o.Notify.URL = "http://flag:2/" })
	opts, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if opts.Notify.URL != "http://flag:2/" {
		t.Fatalf("overlay ignored: %+v", opts.Notify)
	}
}

func TestLoad_ErrorKeepsCurrent(t *testing.T) {
	p := &staticProv{payload: "watch:\n  path: first.txt\n"}
	l := New(p)
	if _, err := l.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	p.err = errors.New("boom")
	if _, err := l.Load(); err == nil {
		t.Fatalf("want error")
	}
	p.err = nil
	p.payload = "watch:\n  interval_ms: -5\n"
	if _, err := l.Load(); err == nil {
		t.Fatalf("want validation error")
	}
	if got := l.Current().Watch.Path; got != "first.txt" {
		t.Fatalf("current replaced: %s", got)
	}
}

func TestLoad_OnUpdateGetsOldAndNew(t *testing.T) {
	p := &staticProv{payload: "notify:\n  url: http://a:1/\n"}
	l := New(p)
	var calls int
	var old, cur conf.Options
	l.SetOnUpdate(func(o, c conf.Options) { calls++; old, cur = o, c })
	if _, err := l.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if calls != 0 {
		t.Fatalf("initial load must not call onUpdate")
	}
	p.payload = "notify:\n  url: http://b:1/\n"
	if _, err := l.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if calls != 1 || old.Notify.URL != "http://a:1/" || cur.Notify.URL != "http://b:1/" {
		t.Fatalf("bad update: calls=%d old=%s cur=%s", calls, old.Notify.URL, cur.Notify.URL)
	}
}

func TestWatch_FileReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifier.yaml")
	if err := os.WriteFile(path, []byte("notify:\n  url: http://a:1/\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := New(provider.NewFile(path))
	if _, err := l.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	ch := make(chan string, 4)
	l.SetOnUpdate(func(_, c conf.Options) { ch <- c.Notify.URL })
	if err := l.Watch(); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := os.WriteFile(path, []byte("notify:\n  url: http://b:1/\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case got := <-ch:
		if got != "http://b:1/" {
			t.Fatalf("bad url: %s", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout")
	}
}
