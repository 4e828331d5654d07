package provider

import (
	"context"
	"log/slog"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdProvider 从 etcd 的单个 key 读取配置，并订阅该 key 的变更。
type EtcdProvider struct {
	Endpoints   []string
	Key         string
	Username    string
	Password    string
	DialTimeout time.Duration
	ReadTimeout time.Duration

	cli *clientv3.Client
}

func NewEtcd(endpoints []string, key string, username, password string) *EtcdProvider {
	return &EtcdProvider{
		Endpoints:   endpoints,
		Key:         key,
		Username:    username,
		Password:    password,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 3 * time.Second,
	}
}

func (p *EtcdProvider) ensureClient() error {
	if p.cli != nil {
		return nil
	}
	cfg := clientv3.Config{Endpoints: p.Endpoints, DialTimeout: p.DialTimeout}
	if p.Username != "" || p.Password != "" {
		cfg.Username = p.Username
		cfg.Password = p.Password
	}
	cli, err := clientv3.New(cfg)
	if err != nil {
		return err
	}
	p.cli = cli
	return nil
}

// Open 在 key 不存在时返回空切片，由调用方决定是否报错。
func (p *EtcdProvider) Open() ([]Content, error) {
	if err := p.ensureClient(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.ReadTimeout)
	defer cancel()
	resp, err := p.cli.Get(ctx, p.Key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return []Content{}, nil
	}
	return []Content{{ID: p.Key, Group: "etcd", Payload: string(resp.Kvs[0].Value)}}, nil
}

func (p *EtcdProvider) Watch(onChange func() error) error {
	if err := p.ensureClient(); err != nil {
		return err
	}
	go func() {
		for resp := range p.cli.Watch(context.Background(), p.Key) {
			if err := resp.Err(); err != nil {
				slog.Warn("etcd watch error", "key", p.Key, "error", err)
				continue
			}
			if err := onChange(); err != nil {
				slog.Warn("config reload failed", "key", p.Key, "error", err)
			}
		}
	}()
	return nil
}

func (p *EtcdProvider) Close() error {
	if p.cli == nil {
		return nil
	}
	return p.cli.Close()
}
