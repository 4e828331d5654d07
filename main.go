package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	conf "policy-notifier/conf"
	provider "policy-notifier/conf/provider"
	"policy-notifier/loader"
	"policy-notifier/notify"
	"policy-notifier/status"
	"policy-notifier/watch"
)

// overrides 保存命令行上显式设置的值，它们覆盖配置来源中的同名字段。
type overrides struct {
	set           map[string]bool
	path          string
	url           string
	interval      int
	timeout       int
	statusBind    string
	notifyInitial bool
}

func (ov overrides) apply(o *conf.Options) {
	if ov.set["path"] {
		o.Watch.Path = ov.path
	}
	if ov.set["url"] {
		o.Notify.URL = ov.url
	}
	if ov.set["interval"] {
		o.Watch.IntervalMs = ov.interval
	}
	if ov.set["timeout"] {
		o.Notify.TimeoutMs = ov.timeout
	}
	if ov.set["status-bind"] {
		o.Status.Bind = ov.statusBind
	}
	if ov.set["notify-initial"] {
		o.Watch.NotifyInitial = ov.notifyInitial
	}
}

type sourceFlags struct {
	source        string
	cfgPath       string
	etcdEndpoints string
	etcdKey       string
	etcdUser      string
	etcdPass      string
	nacosServers  string
	nacosNS       string
	nacosGroup    string
	nacosDataID   string
}

// newProvider 根据 -source 选择配置来源；none 表示只用默认值与命令行参数。
func newProvider(sf sourceFlags) (provider.Provider, error) {
	switch sf.source {
	case "", "none":
		return nil, nil
	case "file":
		return provider.NewFile(sf.cfgPath), nil
	case "etcd":
		eps := nonEmpty(strings.Split(sf.etcdEndpoints, ","))
		if len(eps) == 0 || sf.etcdKey == "" {
			return nil, errors.New("etcd source needs -etcd-endpoints and -etcd-key")
		}
		return provider.NewEtcd(eps, sf.etcdKey, sf.etcdUser, sf.etcdPass), nil
	case "nacos":
		eps := nonEmpty(strings.Split(sf.nacosServers, ","))
		if len(eps) == 0 || sf.nacosDataID == "" {
			return nil, errors.New("nacos source needs -nacos-servers and -nacos-dataid")
		}
		return provider.NewNacos(eps, sf.nacosNS, sf.nacosGroup, sf.nacosDataID), nil
	default:
		return nil, fmt.Errorf("unknown source %q", sf.source)
	}
}

// reconfigure 热更新投递相关配置；监听路径等改动需要重启。
func reconfigure(n *notify.Notifier, old, cur conf.Options) {
	if old.Notify.URL != cur.Notify.URL {
		n.SetURL(cur.Notify.URL)
		slog.Info("backend url updated", "url", cur.Notify.URL)
	}
	if old.Notify.TimeoutMs != cur.Notify.TimeoutMs {
		n.SetTimeout(cur.Notify.Timeout())
		slog.Info("delivery timeout updated", "timeout", cur.Notify.Timeout().String())
	}
	if old.Watch != cur.Watch || old.Status != cur.Status {
		slog.Warn("watch or status settings changed, restart to apply")
	}
}

func main() {
	var sf sourceFlags
	flag.StringVar(&sf.source, "source", "none", "config source: none|file|etcd|nacos")
	flag.StringVar(&sf.cfgPath, "config", "./notifier.yaml", "config file path (for file source)")
	flag.StringVar(&sf.etcdEndpoints, "etcd-endpoints", "", "comma-separated etcd endpoints (for etcd source)")
	flag.StringVar(&sf.etcdKey, "etcd-key", "", "etcd key holding YAML config (for etcd source)")
	flag.StringVar(&sf.etcdUser, "etcd-user", "", "etcd username (optional)")
	flag.StringVar(&sf.etcdPass, "etcd-pass", "", "etcd password (optional)")
	flag.StringVar(&sf.nacosServers, "nacos-servers", "", "comma-separated nacos server addrs host:port (for nacos source)")
	flag.StringVar(&sf.nacosNS, "nacos-namespace", "", "nacos namespace id (optional)")
	flag.StringVar(&sf.nacosGroup, "nacos-group", "DEFAULT_GROUP", "nacos group")
	flag.StringVar(&sf.nacosDataID, "nacos-dataid", "", "nacos dataId holding YAML config")

	ov := overrides{set: map[string]bool{}}
	flag.StringVar(&ov.path, "path", conf.DefaultPath, "policy document to watch")
	flag.StringVar(&ov.url, "url", conf.DefaultURL, "backend endpoint receiving updates")
	flag.IntVar(&ov.interval, "interval", conf.DefaultIntervalMs, "poll interval in milliseconds")
	flag.IntVar(&ov.timeout, "timeout", conf.DefaultTimeoutMs, "delivery timeout in milliseconds")
	flag.StringVar(&ov.statusBind, "status-bind", "", "status server address, e.g. :8090 (empty disables)")
	flag.BoolVar(&ov.notifyInitial, "notify-initial", false, "deliver the content present at startup")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) { ov.set[f.Name] = true })

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	p, err := newProvider(sf)
	if err != nil {
		slog.Error("bad config source", "error", err)
		os.Exit(2)
	}
	l := loader.New(p)
	l.SetOverlay(ov.apply)
	opts, err := l.Load()
	if err != nil {
		slog.Error("failed to load config", "source", sf.source, "error", err)
		os.Exit(1)
	}

	var n *notify.Notifier
	stats := status.NewStats(opts.Watch.Path, func() string { return n.URL() })
	n, err = notify.New(notify.Options{
		URL:      opts.Notify.URL,
		Timeout:  opts.Notify.Timeout(),
		Recorder: stats,
	})
	if err != nil {
		slog.Error("failed to create notifier", "error", err)
		os.Exit(1)
	}

	w, err := watch.New(watch.Options{
		Path:          opts.Watch.Path,
		Interval:      opts.Watch.Interval(),
		Placeholder:   opts.Watch.Placeholder,
		NotifyInitial: opts.Watch.NotifyInitial,
	}, n.Handle)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}

	// 监听配置来源变更，动态刷新投递地址
	l.SetOnUpdate(func(old, cur conf.Options) { reconfigure(n, old, cur) })
	if err := l.Watch(); err != nil {
		slog.Error("start config watch failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Status.Bind != "" {
		h := status.New(opts.Status.Bind, stats)
		go func() {
			if err := h.Run(); err != nil {
				slog.Error("status server stopped", "error", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = h.Shutdown(sctx)
		}()
	}

	slog.Info("starting policy notifier", "path", opts.Watch.Path, "url", opts.Notify.URL)
	slog.Info("edit the document to trigger an update")
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("watcher stopped", "error", err)
	}
	slog.Info("shutting down")
}

// nonEmpty 过滤空字符串元素
func nonEmpty(items []string) []string {
	var out []string
	for _, it := range items {
		s := strings.TrimSpace(it)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
