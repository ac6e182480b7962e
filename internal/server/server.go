package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"hydroserve/internal/accesslog"
	"hydroserve/internal/browser"
	"hydroserve/internal/config"
	"hydroserve/internal/static"

	"github.com/gin-gonic/gin"
)

// Options はServerの出力先と外部動作を設定する
type Options struct {
	Logger    *slog.Logger   // 運用メッセージの出力先
	AccessLog io.Writer      // アクセスログの出力先
	ErrorLog  io.Writer      // リクエスト処理中のパニック情報の出力先
	Opener    browser.Opener // nil の場合はブラウザを開かない
}

// DefaultOptions は標準出力・標準エラーとOSのブラウザを使う設定を返す
func DefaultOptions() Options {
	return Options{
		Logger:    slog.New(slog.NewTextHandler(os.Stdout, nil)),
		AccessLog: os.Stdout,
		ErrorLog:  os.Stderr,
		Opener:    browser.SystemOpener(),
	}
}

// Server は静的ファイルサーバーのライフサイクルを管理する構造体
type Server struct {
	config     *config.Config
	options    Options
	logger     *slog.Logger
	static     *static.Handler
	accessLog  *accesslog.Writer
	httpServer *http.Server

	mu       sync.Mutex
	state    State
	listener net.Listener

	releaseOnce sync.Once
	browserWG   sync.WaitGroup
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.AccessLog == nil {
		opts.AccessLog = io.Discard
	}
	if opts.ErrorLog == nil {
		opts.ErrorLog = io.Discard
	}

	handler, err := static.New(cfg.Static)
	if err != nil {
		return nil, err
	}

	accessLog := accesslog.NewWriter(opts.AccessLog, accesslog.DefaultMaxBacklog)

	// ミドルウェアはルート登録より前に設定する
	engine := gin.New()
	engine.Use(
		accesslog.RequestID(),
		accesslog.Logger(accessLog),
		gin.RecoveryWithWriter(opts.ErrorLog),
	)
	handler.Register(engine)

	return &Server{
		config:    cfg,
		options:   opts,
		logger:    opts.Logger,
		static:    handler,
		accessLog: accessLog,
		httpServer: &http.Server{
			Handler:           engine,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(opts.Logger.Handler(), slog.LevelWarn),
		},
		state: StateNotStarted,
	}, nil
}

// Start はサーバーを起動し、ctx がキャンセルされるまでブロックする
// バインドに失敗した場合は *BindError を返す
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Hydropower Calculator サーバーを起動しています")
	s.logger.Info("サーバーのURL", slog.String("url", s.config.URL()))
	s.logger.Info("Ctrl+C でサーバーを停止します")

	if err := s.Listen(ctx); err != nil {
		return err
	}

	s.logger.Info("サーバーが起動しました",
		slog.String("addr", s.Addr().String()),
		slog.String("root", s.config.Static.Root),
	)

	// バインド確認後に一度だけブラウザを開く。配信ループとは並行
	if s.config.Browser.Enabled && s.options.Opener != nil {
		s.browserWG.Add(1)
		go func() {
			defer s.browserWG.Done()
			s.openBrowser(ctx)
		}()
	}

	err := s.Serve(ctx)
	s.browserWG.Wait()
	return err
}

// Listen はリスナーをバインドする
func (s *Server) Listen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return fmt.Errorf("%s 状態のサーバーはバインドできません", s.state)
	}
	s.state = StateBinding

	addr := s.config.ServerAddress()
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		s.state = StateStopped
		s.release()
		return &BindError{Addr: addr, Err: err}
	}

	s.listener = ln
	return nil
}

// Serve は ctx がキャンセルされるまで接続を受け付ける
// キャンセルによる停止は正常終了として nil を返す
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateBinding || s.listener == nil {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%s 状態のサーバーは配信を開始できません", state)
	}
	s.state = StateServing
	ln := s.listener
	s.mu.Unlock()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.shutdown()
		s.logger.Info("サーバーを停止しました")
		return nil
	case err := <-serveErr:
		s.setState(StateStopped)
		s.release()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("サーバーの実行に失敗: %w", err)
	}
}

// shutdown は新規接続の受け付けを止め、処理中のリクエストを待ってから停止する
// ShutdownTimeout を過ぎた接続は強制的に閉じる
func (s *Server) shutdown() {
	s.logger.Info("サーバーをシャットダウンしています...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("処理中のリクエストを打ち切りました", slog.String("error", err.Error()))
		_ = s.httpServer.Close()
	}

	s.setState(StateStopped)
	s.release()
}

// Close はサーバーを即座に停止する
func (s *Server) Close() error {
	s.mu.Lock()
	state := s.state
	s.state = StateStopped
	ln := s.listener
	s.mu.Unlock()

	var err error
	switch state {
	case StateServing:
		err = s.httpServer.Close()
	case StateBinding:
		if ln != nil {
			err = ln.Close()
		}
	}

	s.release()
	return err
}

// openBrowser はブラウザの起動を試み、結果をログに残して捨てる
func (s *Server) openBrowser(ctx context.Context) {
	if timeout := s.config.Browser.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res := browser.Launch(ctx, s.options.Opener, s.URL())
	if !res.Opened() {
		s.logger.Warn("ブラウザを自動で開けませんでした。上記のURLに手動でアクセスしてください",
			slog.String("url", res.URL),
			slog.String("error", res.Err.Error()),
		)
		return
	}

	s.logger.Info("ブラウザを自動で開いています", slog.String("url", res.URL))
}

// State は現在の状態を返す
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr はバインド済みのアドレスを返す。バインド前は nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL はブラウザで開くURLを返す
// バインド済みなら実際に割り当てられたポートを使う
func (s *Server) URL() string {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return fmt.Sprintf("http://localhost:%d", addr.Port)
	}
	return s.config.URL()
}

func (s *Server) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// release は配信ルートとアクセスログを閉じる
func (s *Server) release() {
	s.releaseOnce.Do(func() {
		_ = s.static.Close()
		_ = s.accessLog.Close()
	})
}
