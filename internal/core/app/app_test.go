package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"vcdscan/internal/core/config"
	"vcdscan/internal/core/errors"
)

const counterDump = `$timescale 10ps $end
$scope module tb $end
$var wire 1 ! clk $end
$var reg 4 " count [3:0] $end
$upscope $end
$enddefinitions $end
#0
$dumpvars
0!
b0 "
$end
#5
1!
b1 "
#10
0!
#15
1!
b10 "
`

func writeDump(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApp_Load(t *testing.T) {
	path := writeDump(t, t.TempDir(), "counter.vcd", counterDump)

	a, err := New(nil)
	require.NoError(t, err)

	var updates []Update
	a.SetUpdateHandler(func(u Update) { updates = append(updates, u) })

	session, err := a.Load(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t, path, session.Path)
	assert.NotEqual(t, [16]byte{}, [16]byte(session.ID))
	assert.Same(t, session, a.Session())
	assert.Equal(t, "tb.clk", session.Result.Clock.Path)
	assert.Equal(t, map[string][]string{
		"tb.clk":   {"1", "1"},
		"tb.count": {"0001", "0010"},
	}, session.Query.GetAllCycles(false))

	require.Len(t, updates, 1)
	assert.NoError(t, updates[0].Err)
	assert.Same(t, session, updates[0].Session)
}

func TestApp_LoadAppliesConfig(t *testing.T) {
	path := writeDump(t, t.TempDir(), "counter.vcd", counterDump)

	cfg := config.Default()
	cfg.Parse.MaxCycles = 2
	cfg.Query.Format = "hex"
	cfg.Query.Exclude = []string{"*.clk"}
	a, err := New(cfg)
	require.NoError(t, err)

	session, err := a.Load(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, session.Result.Truncated)
	assert.Equal(t, 2, session.Result.History.Len())
	assert.Equal(t, []string{"tb.count"}, session.Query.Columns())
	assert.Equal(t, map[string][]string{"tb.count": {"1"}}, session.Query.GetAllCycles(false))
}

func TestApp_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	a, err := New(nil)
	require.NoError(t, err)

	_, err = a.Load(context.Background(), filepath.Join(dir, "missing.vcd"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	bad := writeDump(t, dir, "bad.vcd", "$var wire 1 ! clk $end\n$upscope $end\n")
	_, err = a.Load(context.Background(), bad)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeScopeMismatch))
	assert.Contains(t, err.Error(), bad)
	assert.Nil(t, a.Session(), "failed loads leave no session")
}

func TestApp_LoadStrictBodyErrorReportsPartialCycles(t *testing.T) {
	dump := counterDump + "#20\n0!\n#25\n1%\n"
	path := writeDump(t, t.TempDir(), "broken.vcd", dump)

	a, err := New(nil)
	require.NoError(t, err)

	_, err = a.Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeUnknownSignalReference))

	cycles, ok := errors.ContextValue(err, errors.CtxCycles)
	require.True(t, ok, "error carries the partial cycle count: %v", err)
	assert.Equal(t, 4, cycles)
	assert.Contains(t, err.Error(), "cycles=4")
	assert.Nil(t, a.Session())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Query.Format = "octal"
	_, err := New(cfg)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	a, err := New(nil)
	require.NoError(t, err)
	assert.Error(t, a.SetConfig(cfg))
}

func TestHealthService(t *testing.T) {
	a, err := New(nil)
	require.NoError(t, err)
	health := NewHealthService(a)

	assert.Equal(t, "degraded", health.Check(context.Background()).Status)

	_, err = a.Load(context.Background(), writeDump(t, t.TempDir(), "counter.vcd", counterDump))
	require.NoError(t, err)
	status := health.Check(context.Background())
	assert.Equal(t, "up", status.Status)
	assert.Contains(t, status.Components["session"], "2 signals")
}

func TestApp_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeDump(t, dir, "counter.vcd", counterDump)

	cfg := config.Default()
	cfg.Watch.Debounce = 50 * time.Millisecond
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.Load(context.Background(), path)
	require.NoError(t, err)

	var mu sync.Mutex
	reloaded := make(chan *Session, 4)
	a.SetUpdateHandler(func(u Update) {
		mu.Lock()
		defer mu.Unlock()
		if u.Err == nil {
			reloaded <- u.Session
		}
	})
	require.NoError(t, a.StartWatcher(context.Background(), []string{path}))

	require.NoError(t, os.WriteFile(path, []byte(counterDump+"#20\n0!\n#25\n1!\n"), 0o644))

	timeout := time.After(3 * time.Second)
	for {
		select {
		case s := <-reloaded:
			if s.Result.History.Len() == 5 {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestApp_LoadRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	dir := t.TempDir()
	path := writeDump(t, dir, "counter.vcd", counterDump)

	a, err := New(nil)
	require.NoError(t, err)
	_, err = a.Load(context.Background(), path)
	require.NoError(t, err)
	_, err = a.Load(context.Background(), filepath.Join(dir, "missing.vcd"))
	require.Error(t, err)

	var loads []sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "App.Load" {
			loads = append(loads, span)
		}
	}
	require.Len(t, loads, 2)

	attrs := map[string]string{}
	for _, kv := range loads[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, path, attrs["vcd.path"])
	assert.Equal(t, "3", attrs["vcd.cycles"])
	assert.NotEmpty(t, attrs["vcd.session"])

	assert.Equal(t, "Error", loads[1].Status().Code.String())
}

func TestHealthService_ConcurrentWithWatcherLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := writeDump(t, dir, "counter.vcd", counterDump)

	a, err := New(nil)
	require.NoError(t, err)
	health := NewHealthService(a)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			_ = health.Check(ctx)
			_ = a.SetConfig(a.CurrentConfig())
		}
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, a.StartWatcher(ctx, []string{path}))
		require.NoError(t, a.Close(ctx))
	}
	cancel()
	wg.Wait()

	assert.NotContains(t, health.Check(context.Background()).Components, "watcher")
}
