package conf

import "time"

const (
	DefaultPath        = "external_policy.txt"
	DefaultPlaceholder = "Initial policy document content."
	DefaultURL         = "http://localhost:4000/live-update"
	DefaultIntervalMs  = 500
	DefaultTimeoutMs   = 10000
)

// Options 表示 notifier 的完整配置。
type Options struct {
	Watch  WatchOptions  `yaml:"watch" json:"watch"`
	Notify NotifyOptions `yaml:"notify" json:"notify"`
	Status StatusOptions `yaml:"status" json:"status"`
}

// WatchOptions 描述被监听的策略文件。
type WatchOptions struct {
	Path          string `yaml:"path" json:"path"`
	IntervalMs    int    `yaml:"interval_ms" json:"interval_ms"`
	Placeholder   string `yaml:"placeholder" json:"placeholder"`
	NotifyInitial bool   `yaml:"notify_initial" json:"notify_initial"`
}

type NotifyOptions struct {
	URL       string `yaml:"url" json:"url"`
	TimeoutMs int    `yaml:"timeout_ms" json:"timeout_ms"`
}

// StatusOptions 为空 Bind 时不启动状态服务。
type StatusOptions struct {
	Bind string `yaml:"bind" json:"bind"`
}

// Default 返回内置默认配置。
func Default() Options {
	return Options{
		Watch: WatchOptions{
			Path:        DefaultPath,
			IntervalMs:  DefaultIntervalMs,
			Placeholder: DefaultPlaceholder,
		},
		Notify: NotifyOptions{
			URL:       DefaultURL,
			TimeoutMs: DefaultTimeoutMs,
		},
	}
}

func (o WatchOptions) Interval() time.Duration {
	return time.Duration(o.IntervalMs) * time.Millisecond
}

func (o NotifyOptions) Timeout() time.Duration {
	return time.Duration(o.TimeoutMs) * time.Millisecond
}
