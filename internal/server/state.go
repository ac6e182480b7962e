package server

import (
	"fmt"
)

// State はサーバーのライフサイクル状態
type State int

const (
	StateNotStarted State = iota // 作成直後
	StateBinding                 // リスナーのバインド中、またはバインド済みで配信前
	StateServing                 // 接続を受け付けている
	StateStopped                 // 停止済み（ここから他の状態には戻らない）
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateBinding:
		return "binding"
	case StateServing:
		return "serving"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// BindError はリスナーをバインドできなかったことを表す
// ポート使用中・権限不足・不正なアドレスなど。再試行はしない
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s へのバインドに失敗: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
