package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultPort は待ち受けポートの固定値
const DefaultPort = 8080

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig
	Static  StaticConfig
	Browser BrowserConfig
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string // リッスンするホスト（空文字は全インターフェース）
	Port int    // リッスンするポート番号

	// タイムアウト設定
	ReadHeaderTimeout time.Duration // ヘッダー読み込みタイムアウト
	ShutdownTimeout   time.Duration // 処理中リクエストを待つ最大時間
}

// StaticConfig は静的ファイル配信の設定
type StaticConfig struct {
	Root             string   // 配信ルート（絶対パス）
	IndexFiles       []string // ディレクトリアクセス時に探すファイル名
	DirectoryListing bool     // インデックスがない場合に一覧を返すか（false なら 403）
}

// BrowserConfig はブラウザ自動起動の設定
type BrowserConfig struct {
	Enabled bool
	Timeout time.Duration // 起動コマンドの完了を待つ最大時間
}

// executable はテストで差し替えられるよう変数にしている
var executable = os.Executable

// Load は設定を読み込む
// 配信ルートは実行ファイルのあるディレクトリになる
func Load() (*Config, error) {
	root, err := ExecutableDir()
	if err != nil {
		return nil, fmt.Errorf("配信ルートの解決に失敗: %w", err)
	}

	cfg := Default(root)

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Default は指定されたルートでデフォルト設定を作成する
func Default(root string) *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "",
			Port:              DefaultPort,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Static: StaticConfig{
			Root:             root,
			IndexFiles:       []string{"index.html", "index.htm"},
			DirectoryListing: true,
		},
		Browser: BrowserConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
		},
	}
}

// ExecutableDir は実行ファイルを含むディレクトリの絶対パスを返す
func ExecutableDir() (string, error) {
	exe, err := executable()
	if err != nil {
		return "", err
	}

	// シンボリックリンク経由で起動された場合は実体の場所を使う
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return filepath.Abs(filepath.Dir(exe))
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	if c.Server.ReadHeaderTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("タイムアウトに負の値は指定できません")
	}

	// 配信ルートの検証
	if c.Static.Root == "" {
		return fmt.Errorf("配信ルートが設定されていません")
	}
	if !filepath.IsAbs(c.Static.Root) {
		return fmt.Errorf("配信ルートは絶対パスである必要があります: %s", c.Static.Root)
	}
	for _, name := range c.Static.IndexFiles {
		if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return fmt.Errorf("無効なインデックスファイル名: %q", name)
		}
	}

	if c.Browser.Timeout < 0 {
		return fmt.Errorf("ブラウザ起動のタイムアウトに負の値は指定できません")
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// URL はオペレーター向けに表示するアクセスURLを返す
func (c *Config) URL() string {
	return fmt.Sprintf("http://localhost:%d", c.Server.Port)
}
