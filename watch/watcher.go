package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultInterval    = 500 * time.Millisecond
	DefaultPlaceholder = "Initial policy document content."
)

// Options configures a Watcher.
type Options struct {
	Path          string
	Interval      time.Duration
	Placeholder   string
	NotifyInitial bool
	// DisableFSNotify turns off change hints and leaves plain polling.
	DisableFSNotify bool
	Logger          *slog.Logger
}

// Watcher polls a single document and hands every content change to a
// Handler. It owns the last known content; nothing else reads or writes it.
type Watcher struct {
	path          string
	interval      time.Duration
	placeholder   string
	notifyInitial bool
	fsnotify      bool
	handler       Handler
	logger        *slog.Logger

	last    string
	lastErr string
}

func New(opts Options, h Handler) (*Watcher, error) {
	if opts.Path == "" {
		return nil, errors.New("watch: empty path")
	}
	if h == nil {
		return nil, errors.New("watch: nil handler")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:          opts.Path,
		interval:      opts.Interval,
		placeholder:   opts.Placeholder,
		notifyInitial: opts.NotifyInitial,
		fsnotify:      !opts.DisableFSNotify,
		handler:       h,
		logger:        logger.With("path", opts.Path),
	}, nil
}

func (w *Watcher) Path() string { return w.path }

// Last returns the last observed content. Only safe to call from the
// goroutine running the watcher, or after Run has returned.
func (w *Watcher) Last() string { return w.last }

// EnsureFile creates the document with the placeholder content if it does
// not exist yet.
func (w *Watcher) EnsureFile() (bool, error) {
	if _, err := os.Stat(w.path); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, &AccessError{Op: "create", Path: w.path, Err: err}
		}
	}
	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, &AccessError{Op: "create", Path: w.path, Err: err}
	}
	_, err = f.WriteString(w.placeholder)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return true, &AccessError{Op: "create", Path: w.path, Err: err}
	}
	return true, nil
}

// Run creates the document if needed, records its current content as the
// baseline and polls until ctx is cancelled. Read and delivery failures are
// logged and never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	created, err := w.EnsureFile()
	switch {
	case err != nil:
		w.logger.Error("could not create document", "error", err)
	case created:
		w.logger.Info("created placeholder document", "content", w.placeholder)
	}

	w.prime(ctx)

	var hints <-chan struct{}
	if w.fsnotify {
		ch, err := subscribe(ctx, w.path)
		if err != nil {
			w.logger.Warn("fsnotify unavailable, polling only", "error", err)
		} else {
			hints = ch
		}
	}

	w.logger.Info("watching document", "interval", w.interval.String(), "fsnotify", hints != nil)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-hints:
		}
		_, _ = w.Poll(ctx)
	}
}

// Poll performs one observation cycle and reports whether a change was
// dispatched.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	content, err := w.read()
	if err != nil {
		return false, err
	}
	if content == w.last {
		return false, nil
	}
	w.dispatch(ctx, ChangeEvent{
		Path:       w.path,
		Content:    content,
		Previous:   w.last,
		DetectedAt: time.Now(),
	})
	w.last = content
	return true, nil
}

func (w *Watcher) prime(ctx context.Context) {
	content, err := w.read()
	if err != nil {
		return
	}
	if w.notifyInitial {
		w.dispatch(ctx, ChangeEvent{Path: w.path, Content: content, DetectedAt: time.Now()})
	}
	w.last = content
}

// read logs an access error once per distinct failure and logs recovery.
func (w *Watcher) read() (string, error) {
	b, err := os.ReadFile(w.path)
	if err != nil {
		aerr := &AccessError{Op: "read", Path: w.path, Err: err}
		if msg := err.Error(); msg != w.lastErr {
			w.lastErr = msg
			w.logger.Warn("document unreadable, will keep polling", "error", err)
		}
		return "", aerr
	}
	if w.lastErr != "" {
		w.lastErr = ""
		w.logger.Info("document readable again")
	}
	return string(b), nil
}

func (w *Watcher) dispatch(ctx context.Context, ev ChangeEvent) {
	w.logger.Info("change detected", "bytes", len(ev.Content))
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("change handler panicked", "panic", r)
		}
	}()
	if err := w.handler(ctx, ev); err != nil {
		w.logger.Warn("change handler failed", "error", err)
	}
}
