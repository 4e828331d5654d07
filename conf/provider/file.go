package provider

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const fileDebounce = 200 * time.Millisecond

// FileProvider 从本地 YAML 文件读取配置，并通过 fsnotify 监听所在目录。
type FileProvider struct {
	Path string
}

func NewFile(path string) *FileProvider {
	return &FileProvider{Path: path}
}

func (p *FileProvider) Open() ([]Content, error) {
	b, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	return []Content{{ID: p.Path, Group: "file", Payload: string(b)}}, nil
}

// Watch 监听父目录而不是文件本身，编辑器的“写临时文件再 rename”也能被捕获。
func (p *FileProvider) Watch(onChange func() error) error {
	if _, err := os.Stat(p.Path); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.Path)); err != nil {
		_ = watcher.Close()
		return err
	}
	target := filepath.Clean(p.Path)
	go func() {
		defer watcher.Close()
		// 尾沿防抖：安静 fileDebounce 之后才重载，避免读到截断后的半成品
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(fileDebounce)
				} else {
					timer.Reset(fileDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if err := onChange(); err != nil {
					slog.Warn("config reload failed", "path", p.Path, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watch error", "path", p.Path, "error", err)
			}
		}
	}()
	return nil
}
