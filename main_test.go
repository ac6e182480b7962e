package main

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hydroserve/internal/browser"
	"hydroserve/internal/config"
	"hydroserve/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>Hi</h1>"), 0o644))

	cfg := config.Default(root)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	return cfg
}

// TestServe_Interrupt は割り込みによる停止が終了コード0になることをテストする
func TestServe_Interrupt(t *testing.T) {
	opened := make(chan struct{}, 1)
	opts := server.Options{
		Opener: browser.OpenerFunc(func(string) error {
			opened <- struct{}{}
			return nil
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stderr := &syncBuffer{}
	done := make(chan int, 1)
	go func() {
		done <- serve(ctx, newTestConfig(t), opts, slog.New(slog.NewTextHandler(stderr, nil)))
	}()

	// ブラウザが開かれた時点でバインド済み
	select {
	case <-opened:
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーが起動しませんでした")
	}
	cancel()

	select {
	case code := <-done:
		assert.Equal(t, 0, code)
	case <-time.After(3 * time.Second):
		t.Fatal("割り込み後にサーバーが停止しませんでした")
	}
	assert.Empty(t, stderr.String())
}

// TestServe_PortInUse は使用中ポートで0以外の終了コードになることをテストする
func TestServe_PortInUse(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() {
		_ = busy.Close()
	}()

	cfg := newTestConfig(t)
	cfg.Server.Port = busy.Addr().(*net.TCPAddr).Port

	stderr := &syncBuffer{}
	code := serve(context.Background(), cfg, server.Options{}, slog.New(slog.NewTextHandler(stderr, nil)))

	assert.NotEqual(t, 0, code)
	assert.Contains(t, stderr.String(), "ポートをバインドできませんでした")
}

func TestServe_MissingRoot(t *testing.T) {
	cfg := config.Default(filepath.Join(t.TempDir(), "missing"))

	stderr := &syncBuffer{}
	code := serve(context.Background(), cfg, server.Options{}, slog.New(slog.NewTextHandler(stderr, nil)))

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "サーバーの作成に失敗しました")
}
