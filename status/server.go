package status

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// New 构建状态服务：GET /health 与 GET /status。调用方负责 Spin。
func New(bind string, stats *Stats) *server.Hertz {
	h := server.New(
		server.WithHostPorts(bind),
		server.WithDisableDefaultDate(true),
		server.WithDisablePrintRoute(true),
		server.WithExitWaitTime(1*time.Second),
	)

	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})

	h.GET("/status", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, stats.Snapshot())
	})

	return h
}
