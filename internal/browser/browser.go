// Package browser は既定のWebブラウザでURLを開く
//
// 起動は常にベストエフォートで、失敗してもパニックやエラー伝播は起こさない。
// Launch は結果を Result として返すので、呼び出し側はログに残して破棄する。
package browser

import (
	"context"
	"fmt"
	"io"

	pkgbrowser "github.com/pkg/browser"
)

// Opener はURLを開く手段
type Opener interface {
	Open(url string) error
}

// OpenerFunc は関数をOpenerとして扱うためのアダプタ
type OpenerFunc func(url string) error

// Open は f(url) を呼び出す
func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// SystemOpener はOS標準の仕組み（xdg-open, open, rundll32）でURLを開く
func SystemOpener() Opener {
	return OpenerFunc(pkgbrowser.OpenURL)
}

// Silence は起動コマンドの標準出力・標準エラーの出力先を差し替える
// ヘッドレス環境で起動コマンドのエラーが端末に流れないようにするために使う
func Silence(stdout, stderr io.Writer) {
	pkgbrowser.Stdout = stdout
	pkgbrowser.Stderr = stderr
}

// LaunchError はブラウザを開けなかったことを表す
type LaunchError struct {
	URL string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("ブラウザで %s を開けませんでした: %v", e.URL, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Result は起動の試行結果
type Result struct {
	URL string
	Err error // 失敗時は *LaunchError
}

// Opened はブラウザの起動に成功したかを返す
func (r Result) Opened() bool {
	return r.Err == nil
}

// Launch は opener で url を一度だけ開く
// ctx が先に終わった場合は起動を待たずに失敗として返す
func Launch(ctx context.Context, opener Opener, url string) Result {
	if opener == nil {
		return Result{URL: url, Err: &LaunchError{URL: url, Err: fmt.Errorf("opener が設定されていません")}}
	}

	done := make(chan error, 1)
	go func() {
		done <- safeOpen(opener, url)
	}()

	select {
	case err := <-done:
		if err != nil {
			return Result{URL: url, Err: &LaunchError{URL: url, Err: err}}
		}
		return Result{URL: url}
	case <-ctx.Done():
		return Result{URL: url, Err: &LaunchError{URL: url, Err: ctx.Err()}}
	}
}

// safeOpen はOpenerのパニックをエラーに変換する
func safeOpen(opener Opener, url string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ブラウザ起動中にパニック: %v", r)
		}
	}()
	return opener.Open(url)
}
