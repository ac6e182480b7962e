package static

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"slices"
	"strings"

	"hydroserve/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// allowedMethods は405応答のAllowヘッダーに載せるメソッド
const allowedMethods = "GET, HEAD"

// Handler は配信ルート以下の静的ファイルを返すハンドラ
type Handler struct {
	root       *os.Root
	fsys       fs.FS
	indexFiles []string
	listing    bool
}

// New は配信ルートを開いて新しいHandlerを作成する
func New(cfg config.StaticConfig) (*Handler, error) {
	root, err := os.OpenRoot(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("配信ルートを開けません: %w", err)
	}

	return &Handler{
		root:       root,
		fsys:       root.FS(),
		indexFiles: slices.Clone(cfg.IndexFiles),
		listing:    cfg.DirectoryListing,
	}, nil
}

// Close は配信ルートを閉じる
func (h *Handler) Close() error {
	return h.root.Close()
}

// Register はエンジンにテンプレートとルートを登録する
func (h *Handler) Register(r *gin.Engine) {
	r.SetHTMLTemplate(templates)
	r.HandleMethodNotAllowed = true

	r.GET("/*filepath", h.Serve)
	r.HEAD("/*filepath", h.Serve)

	r.NoMethod(h.methodNotAllowed)
	r.NoRoute(func(c *gin.Context) {
		h.renderError(c, http.StatusNotFound)
	})
}

// Serve はリクエストパスを解決してレスポンスを返す
func (h *Handler) Serve(c *gin.Context) {
	urlPath := c.Request.URL.Path
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}

	// ルート外を指す可能性のあるパスは解決せずに拒否する
	if hasDotDotSegment(urlPath) {
		h.renderError(c, http.StatusBadRequest)
		return
	}

	name := fsName(urlPath)
	info, err := fs.Stat(h.fsys, name)
	if err != nil {
		h.renderOpenError(c, err)
		return
	}

	if info.IsDir() {
		h.serveDir(c, name, urlPath)
		return
	}

	// ファイルに対する末尾スラッシュ付きのアクセスは存在しない扱い
	if strings.HasSuffix(urlPath, "/") || !info.Mode().IsRegular() {
		h.renderError(c, http.StatusNotFound)
		return
	}

	h.serveFile(c, name)
}

// serveDir はディレクトリへのアクセスを処理する
func (h *Handler) serveDir(c *gin.Context, name, urlPath string) {
	// 相対リンクが正しく解決されるよう末尾スラッシュ付きに揃える
	if !strings.HasSuffix(urlPath, "/") {
		target := url.URL{
			Path:     strings.TrimSuffix(path.Clean(urlPath), "/") + "/",
			RawQuery: c.Request.URL.RawQuery,
		}
		c.Redirect(http.StatusMovedPermanently, target.String())
		return
	}

	if index, ok := h.findIndex(name); ok {
		h.serveFile(c, index)
		return
	}

	if !h.listing {
		h.renderError(c, http.StatusForbidden)
		return
	}

	h.serveListing(c, name, urlPath)
}

// findIndex はディレクトリ内のインデックスファイルを探す
func (h *Handler) findIndex(dir string) (string, bool) {
	for _, index := range h.indexFiles {
		name := path.Join(dir, index)
		info, err := fs.Stat(h.fsys, name)
		if err == nil && info.Mode().IsRegular() {
			return name, true
		}
	}
	return "", false
}

// serveFile はファイルの内容をそのまま返す
func (h *Handler) serveFile(c *gin.Context, name string) {
	f, err := h.fsys.Open(name)
	if err != nil {
		h.renderOpenError(c, err)
		return
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		h.renderOpenError(c, err)
		return
	}
	if !info.Mode().IsRegular() {
		h.renderError(c, http.StatusNotFound)
		return
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			h.renderOpenError(c, err)
			return
		}
		content = bytes.NewReader(data)
	}

	// Content-Typeを先に設定しておくとServeContentはスニッフィングしない
	c.Header("Content-Type", ContentType(name))
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), content)
}

// serveListing はディレクトリ一覧を返す
func (h *Handler) serveListing(c *gin.Context, name, urlPath string) {
	entries, err := fs.ReadDir(h.fsys, name)
	if err != nil {
		h.renderOpenError(c, err)
		return
	}

	slices.SortStableFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
	})

	page := listingPage{
		Path:    urlPath,
		Entries: lo.Map(entries, func(e fs.DirEntry, _ int) listingEntry { return newListingEntry(e) }),
	}
	c.HTML(http.StatusOK, listingTemplate, page)
}

// newListingEntry は一覧の1行を作る
func newListingEntry(e fs.DirEntry) listingEntry {
	display := e.Name()
	href := "./" + url.PathEscape(e.Name())

	switch {
	case e.IsDir():
		display += "/"
		href += "/"
	case e.Type()&fs.ModeSymlink != 0:
		display += "@"
	}

	return listingEntry{Name: display, Href: href}
}

// methodNotAllowed はGET/HEAD以外のメソッドへの応答
func (h *Handler) methodNotAllowed(c *gin.Context) {
	c.Header("Allow", allowedMethods)
	h.renderError(c, http.StatusMethodNotAllowed)
}

// renderOpenError はファイルを開けなかった理由をステータスに変換する
// 存在しない場合とルート外を指す場合はどちらも 404
func (h *Handler) renderOpenError(c *gin.Context, err error) {
	if errors.Is(err, fs.ErrPermission) {
		h.renderError(c, http.StatusForbidden)
		return
	}
	h.renderError(c, http.StatusNotFound)
}

// renderError は最小限のHTMLでエラーを返す
func (h *Handler) renderError(c *gin.Context, code int) {
	c.HTML(code, errorTemplate, errorPage{
		Code:    code,
		Message: http.StatusText(code),
	})
}

// hasDotDotSegment はパスに ".." セグメントが含まれるか判定する
func hasDotDotSegment(p string) bool {
	segments := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	return lo.Contains(segments, "..")
}

// fsName はURLパスを fs.FS 用の名前に変換する
func fsName(urlPath string) string {
	name := strings.TrimPrefix(path.Clean(urlPath), "/")
	if name == "" {
		return "."
	}
	return name
}
