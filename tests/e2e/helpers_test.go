package e2e

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/AFFWORLDT/WHITLIN-sub002/internal/control"
	"github.com/AFFWORLDT/WHITLIN-sub002/internal/core/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// startApp runs an App on a free port and waits until /health answers.
func startApp(t *testing.T, ctx context.Context, cfg *config.AppConfig) *control.App {
	t.Helper()

	cfg.Server.Port = freePort(t)
	cfg.Client.BaseURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	if err := app.Start(ctx); err != nil {
		t.Fatalf("Failed to start app: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(cfg.Client.BaseURL + "/health")
		if err == nil {
			resp.Body.Close()
			return app
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not come up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
