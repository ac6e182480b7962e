package static

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// templates はディレクトリ一覧とエラーページのテンプレート
var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	listingTemplate = "listing.html"
	errorTemplate   = "error.html"
)

// listingPage はディレクトリ一覧テンプレートに渡すデータ
type listingPage struct {
	Path    string
	Entries []listingEntry
}

// listingEntry は一覧の1行
type listingEntry struct {
	Name string // 表示名（ディレクトリは "/"、シンボリックリンクは "@" 付き）
	Href string // エスケープ済みの相対リンク
}

// errorPage はエラーページテンプレートに渡すデータ
type errorPage struct {
	Code    int
	Message string
}
