package provider

// Content 表示来源返回的一个 YAML 配置文档。
type Content struct {
	ID      string
	Group   string
	Payload string
}

// Provider 是 notifier 配置的来源：本地文件、etcd 或 nacos。
// Watch 在来源内容变化时调用 onChange，onChange 返回的错误只用于日志。
type Provider interface {
	Open() ([]Content, error)
	Watch(onChange func() error) error
}
