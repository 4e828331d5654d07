package loader

import (
	"sync"
	"sync/atomic"

	conf "policy-notifier/conf"
	provider "policy-notifier/conf/provider"
)

// Loader 持有当前生效的配置，来源变化时重新加载并回调。
type Loader struct {
	p       provider.Provider
	overlay func(*conf.Options)
	cur     atomic.Pointer[conf.Options]

	mu       sync.Mutex
	onUpdate func(old, cur conf.Options)
}

func New(p provider.Provider) *Loader { return &Loader{p: p} }

// SetOverlay 设置在每次加载后、校验前应用的修改，用于命令行参数覆盖。
func (l *Loader) SetOverlay(fn func(*conf.Options)) { l.overlay = fn }

func (l *Loader) SetOnUpdate(fn func(old, cur conf.Options)) {
	l.mu.Lock()
	l.onUpdate = fn
	l.mu.Unlock()
}

// Load 加载一次配置；失败时保留上一次的有效配置。
func (l *Loader) Load() (conf.Options, error) {
	opts := conf.Default()
	if l.p != nil {
		if err := conf.LoadFromProvider(l.p, &opts); err != nil {
			return l.Current(), err
		}
	}
	if l.overlay != nil {
		l.overlay(&opts)
	}
	if err := conf.Validate(opts); err != nil {
		return l.Current(), err
	}
	prev := l.cur.Swap(&opts)

	l.mu.Lock()
	fn := l.onUpdate
	l.mu.Unlock()
	if fn != nil && prev != nil {
		fn(*prev, opts)
	}
	return opts, nil
}

func (l *Loader) Current() conf.Options {
	if v := l.cur.Load(); v != nil {
		return *v
	}
	return conf.Default()
}

// Watch 订阅来源变更；没有来源时直接返回。
func (l *Loader) Watch() error {
	if l.p == nil {
		return nil
	}
	return l.p.Watch(func() error {
		_, err := l.Load()
		return err
	})
}
