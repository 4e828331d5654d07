package watch

import (
	"context"
	"fmt"
	"time"
)

// ChangeEvent is a snapshot of the watched document taken when its content
// differed from the last observed content.
type ChangeEvent struct {
	Path       string
	Content    string
	Previous   string
	DetectedAt time.Time
}

// Handler receives change events synchronously on the watch loop. The next
// poll does not start until it returns.
type Handler func(ctx context.Context, ev ChangeEvent) error

// AccessError reports that the watched document could not be read or created.
// The watch loop logs it and keeps polling.
type AccessError struct {
	Op   string
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }
