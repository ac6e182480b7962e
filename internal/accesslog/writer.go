package accesslog

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/gammazero/workerpool"
)

// DefaultMaxBacklog は書き込み待ちとして保持するログ行の上限
const DefaultMaxBacklog = 1024

// Writer はログ行を別ゴルーチンで書き出す io.Writer
//
// Write は出力先を待たずに戻る。ワーカーが1つなので行の順序は保たれる。
// 待ち行列が上限を超えた行と、出力先の書き込みエラーは捨てる。
type Writer struct {
	out        io.Writer
	pool       *workerpool.WorkerPool
	maxBacklog int

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewWriter は新しいWriterを作成する
func NewWriter(out io.Writer, maxBacklog int) *Writer {
	if maxBacklog <= 0 {
		maxBacklog = DefaultMaxBacklog
	}

	return &Writer{
		out:        out,
		pool:       workerpool.New(1),
		maxBacklog: maxBacklog,
	}
}

// Write は p のコピーを書き込み待ちに積む
// リクエスト処理を止めないよう、常に len(p) と nil を返す
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed || w.pool.WaitingQueueSize() >= w.maxBacklog {
		w.dropped.Add(1)
		return len(p), nil
	}

	line := make([]byte, len(p))
	copy(line, p)
	w.pool.Submit(func() {
		_, _ = w.out.Write(line)
	})

	return len(p), nil
}

// Dropped は捨てたログ行の数を返す
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

// Close は積まれているログ行をすべて書き出してから停止する
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.pool.StopWait()
	return nil
}
