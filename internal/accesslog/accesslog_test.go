package accesslog

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// syncBuffer はワーカーから書き込まれるバッファ
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

// blockingWriter は release が閉じられるまで書き込みを止める
type blockingWriter struct {
	release chan struct{}
	out     syncBuffer
}

func (b *blockingWriter) Write(p []byte) (int, error) {
	<-b.release
	return b.out.Write(p)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("stdout closed")
}

func TestWriter_Order(t *testing.T) {
	out := &syncBuffer{}
	w := NewWriter(out, 0)

	for _, line := range []string{"a\n", "b\n", "c\n"} {
		n, err := w.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, len(line), n)
	}

	require.NoError(t, w.Close())
	assert.Equal(t, "a\nb\nc\n", out.String())
	assert.Zero(t, w.Dropped())
}

func TestWriter_DoesNotBlock(t *testing.T) {
	bw := &blockingWriter{release: make(chan struct{})}
	w := NewWriter(bw, 2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_, _ = w.Write([]byte("line\n"))
		}
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("出力先が詰まっている間に Write がブロックしました")
	}

	assert.Positive(t, w.Dropped())
	assert.Less(t, w.Dropped(), int64(100))

	close(bw.release)
	require.NoError(t, w.Close())

	written := strings.Count(bw.out.String(), "line\n")
	assert.Equal(t, int64(100), int64(written)+w.Dropped())
}

func TestWriter_IgnoresErrors(t *testing.T) {
	w := NewWriter(failingWriter{}, 0)

	n, err := w.Write([]byte("x\n"))
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, w.Close())
}

func TestWriter_AfterClose(t *testing.T) {
	out := &syncBuffer{}
	w := NewWriter(out, 0)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	n, err := w.Write([]byte("late\n"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(1), w.Dropped())
	assert.Empty(t, out.String())
}

func TestLogger(t *testing.T) {
	out := &syncBuffer{}

	r := gin.New()
	r.Use(RequestID(), Logger(out))
	r.GET("/hello", func(c *gin.Context) {
		c.String(http.StatusOK, "hi")
	})

	req := httptest.NewRequest(http.MethodGet, "/hello?x=1", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)

	line := out.String()
	assert.True(t, strings.HasPrefix(line, "192.0.2.10 - - ["), line)
	assert.Contains(t, line, `"GET /hello?x=1 HTTP/1.1" 200 2 `)
	assert.Contains(t, line, "id="+id)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestFormat(t *testing.T) {
	ts := time.Date(2026, 10, 19, 9, 12, 3, 0, time.UTC)

	line := Format(gin.LogFormatterParams{
		TimeStamp:  ts,
		StatusCode: http.StatusNotFound,
		Latency:    1500 * time.Microsecond,
		ClientIP:   "127.0.0.1",
		Method:     http.MethodGet,
		Path:       "/missing.txt",
	})

	assert.Equal(t, "127.0.0.1 - - [19/Oct/2026 09:12:03] \"GET /missing.txt HTTP/1.1\" 404 - 1.5ms\n", line)
}
