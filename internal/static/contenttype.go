package static

import (
	"mime"
	"path"
	"strings"
)

// DefaultContentType は拡張子から種類が判別できない場合のContent-Type
const DefaultContentType = "application/octet-stream"

// contentTypes はOSのMIMEデータベースより優先する固定の対応表
// 実行環境によって結果が変わらないよう、Webアプリでよく使う拡張子はここで決める
var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".htm":   "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".json":  "application/json",
	".map":   "application/json",
	".txt":   "text/plain; charset=utf-8",
	".csv":   "text/csv; charset=utf-8",
	".xml":   "text/xml; charset=utf-8",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".ico":   "image/vnd.microsoft.icon",
	".bmp":   "image/bmp",
	".avif":  "image/avif",
	".wasm":  "application/wasm",
	".pdf":   "application/pdf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// ContentType はファイル名の拡張子からContent-Typeを決める
// 内容のスニッフィングは行わない
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return DefaultContentType
	}

	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}

	return DefaultContentType
}
