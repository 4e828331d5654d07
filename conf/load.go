package conf

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	provider "policy-notifier/conf/provider"

	"gopkg.in/yaml.v3"
)

// Load 读取 YAML 配置文件，叠加到 opts 已有的值之上。
func Load(path string, opts *Options) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, opts); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

// LoadFromProvider 按顺序解析 Provider 返回的全部文档，后者覆盖前者。
func LoadFromProvider(p provider.Provider, opts *Options) error {
	contents, err := p.Open()
	if err != nil {
		return err
	}
	if len(contents) == 0 {
		return errors.New("no config content from provider")
	}
	for _, c := range contents {
		if err := yaml.Unmarshal([]byte(c.Payload), opts); err != nil {
			return fmt.Errorf("parse yaml %s: %w", c.ID, err)
		}
	}
	return nil
}

// LoadOptionsFromProvider 在默认值之上合并 Provider 内容并校验。
func LoadOptionsFromProvider(p provider.Provider) (Options, error) {
	opts := Default()
	if err := LoadFromProvider(p, &opts); err != nil {
		return opts, err
	}
	if err := Validate(opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// Validate 对关键字段进行最小校验。
func Validate(o Options) error {
	if o.Watch.Path == "" {
		return errors.New("watch.path can't be empty")
	}
	if o.Watch.IntervalMs <= 0 {
		return fmt.Errorf("watch.interval_ms must be positive, got %d", o.Watch.IntervalMs)
	}
	if o.Notify.TimeoutMs < 0 {
		return fmt.Errorf("notify.timeout_ms can't be negative, got %d", o.Notify.TimeoutMs)
	}
	u, err := url.Parse(o.Notify.URL)
	if err != nil {
		return fmt.Errorf("notify.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("notify.url must be http or https, got %q", o.Notify.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("notify.url has no host: %q", o.Notify.URL)
	}
	return nil
}
