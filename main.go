package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"hydroserve/internal/browser"
	"hydroserve/internal/config"
	"hydroserve/internal/server"

	"github.com/gin-gonic/gin"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	// 起動コマンド自身の出力は捨て、結果はサーバー側のログで伝える
	browser.Silence(io.Discard, io.Discard)

	// 割り込みシグナルでコンテキストをキャンセルする
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	code := run(ctx, os.Stderr)
	stop()
	os.Exit(code)
}

// run は設定を読み込んでサーバーを起動し、終了コードを返す
func run(ctx context.Context, stderr io.Writer) int {
	errLogger := slog.New(slog.NewTextHandler(stderr, nil))

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		errLogger.Error("設定の読み込みに失敗しました", slog.String("error", err.Error()))
		return 1
	}

	opts := server.DefaultOptions()
	opts.ErrorLog = stderr

	return serve(ctx, cfg, opts, errLogger)
}

// serve はサーバーを起動し、停止するまでブロックする
func serve(ctx context.Context, cfg *config.Config, opts server.Options, errLogger *slog.Logger) int {
	srv, err := server.New(cfg, opts)
	if err != nil {
		errLogger.Error("サーバーの作成に失敗しました", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		_ = srv.Close()
	}()

	if err := srv.Start(ctx); err != nil {
		var bindErr *server.BindError
		if errors.As(err, &bindErr) {
			errLogger.Error("ポートをバインドできませんでした。他のプロセスが使用していないか確認してください",
				slog.String("addr", bindErr.Addr),
				slog.String("error", bindErr.Err.Error()),
			)
			return 1
		}
		errLogger.Error("サーバーが異常終了しました", slog.String("error", err.Error()))
		return 1
	}

	return 0
}
