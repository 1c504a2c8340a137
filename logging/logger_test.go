package logging

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCaptured(level Level) (*StdLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewStdLogger("studentdb").WithLevel(level).WithOutput(log.New(buf, "", 0))
	return l, buf
}

// TestStdLogger_LevelFilter 低于最低级别的日志不输出
func TestStdLogger_LevelFilter(t *testing.T) {
	l, buf := newCaptured(WarnLevel)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "hidden too")
	assert.Empty(t, buf.String())

	l.Warn(ctx, "visible", Int("n", 3))
	assert.Equal(t, "[WARN] studentdb visible n=3\n", buf.String())
}

// TestStdLogger_WithFields 字段按顺序追加，且不影响原 Logger
func TestStdLogger_WithFields(t *testing.T) {
	l, buf := newCaptured(DebugLevel)
	child := l.WithFields(String("component", "store"))

	child.Error(context.Background(), "save failed", Error(errors.New("disk full")))
	assert.Equal(t, "[ERROR] studentdb save failed component=store error=disk full\n", buf.String())

	buf.Reset()
	l.Info(context.Background(), "plain")
	assert.Equal(t, "[INFO] studentdb plain\n", buf.String())
}

// TestStdLogger_ContextFields 上下文字段位于静态字段之后、调用字段之前
func TestStdLogger_ContextFields(t *testing.T) {
	type key struct{}
	l, buf := newCaptured(InfoLevel)
	l.WithContextFields(func(ctx context.Context) []Field {
		if v, ok := ctx.Value(key{}).(string); ok {
			return []Field{String("request_id", v)}
		}
		return nil
	})

	ctx := context.WithValue(context.Background(), key{}, "req-1")
	l.WithFields(String("a", "1")).Info(ctx, "hello", String("b", "2"))
	assert.Equal(t, "[INFO] studentdb hello a=1 request_id=req-1 b=2\n", buf.String())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"":        InfoLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		" error ": ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestSetLogger_IgnoresNil(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	noop := NewNoopLogger()
	SetLogger(noop)
	SetLogger(nil)
	assert.Same(t, noop, GetLogger())
}
