package workers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upper is a handler that records which worker handled which task.
type upper struct {
	id     int
	log    Logger
	closed *atomic.Int32
	fail   string
}

func (u *upper) Handle(_ context.Context, task string) (string, error) {
	if task == u.fail {
		return "", errors.New("cannot handle " + task)
	}
	u.log.Info("handled", "task", task)
	return strings.ToUpper(task), nil
}

func (u *upper) Close() error {
	u.closed.Add(1)
	return nil
}

func upperFactory(closed *atomic.Int32, fail string) Factory[string, string] {
	return func(id int, log Logger) (Handler[string, string], error) {
		return &upper{id: id, log: log, closed: closed, fail: fail}, nil
	}
}

func TestRun_ResultsInTaskOrder(t *testing.T) {
	tasks := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var closed atomic.Int32

	var progress []int
	got, err := Run(context.Background(), Options{
		Workers:  3,
		Progress: func(done, total int) { progress = append(progress, done); assert.Equal(t, len(tasks), total) },
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	}, tasks, upperFactory(&closed, ""))

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G", "H"}, got)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, progress)
	assert.Equal(t, int32(3), closed.Load(), "every handler is closed")
}

func TestRun_NoTasks(t *testing.T) {
	called := false
	got, err := Run(context.Background(), Options{}, nil, func(int, Logger) (Handler[string, string], error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.False(t, called)
}

func TestRun_PoolNeverLargerThanTaskList(t *testing.T) {
	var closed atomic.Int32
	_, err := Run(context.Background(), Options{Workers: 16}, []string{"x", "y"}, upperFactory(&closed, ""))
	require.NoError(t, err)
	assert.Equal(t, int32(2), closed.Load())
}

func TestRun_HandlerErrorIsFatal(t *testing.T) {
	tasks := make([]string, 50)
	for i := range tasks {
		tasks[i] = string(rune('a' + i%26))
	}
	tasks[10] = "boom"
	var closed atomic.Int32

	got, err := Run(context.Background(), Options{Workers: 4}, tasks, upperFactory(&closed, "boom"))

	assert.Nil(t, got)
	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, 10, taskErr.Index)
	assert.Contains(t, err.Error(), "cannot handle boom")
	assert.Equal(t, int32(4), closed.Load())
}

func TestRun_FactoryError(t *testing.T) {
	boom := errors.New("dictionary missing")
	_, err := Run(context.Background(), Options{Workers: 2}, []string{"a", "b", "c"}, func(int, Logger) (Handler[string, string], error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var closed atomic.Int32

	_, err := Run(ctx, Options{Workers: 2}, []string{"a", "b", "c", "d", "e", "f"}, upperFactory(&closed, ""))
	assert.ErrorIs(t, err, context.Canceled)
}

// lockedBuffer lets the log listener and the test share a buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_WorkerLogsReachLogger(t *testing.T) {
	var out lockedBuffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	var closed atomic.Int32

	_, err := Run(context.Background(), Options{Workers: 1, Logger: logger}, []string{"a", "b"}, upperFactory(&closed, ""))
	require.NoError(t, err)

	logs := out.String()
	assert.Contains(t, logs, "worker started")
	assert.Contains(t, logs, "msg=handled task=a worker=0")
	assert.Contains(t, logs, "msg=handled task=b worker=0")
	assert.Contains(t, logs, "worker finished")
}

func TestLogger_ZeroValueDiscards(t *testing.T) {
	var l Logger
	assert.NotPanics(t, func() { l.Info("nothing listens") })
}

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkers(), 1)
}
