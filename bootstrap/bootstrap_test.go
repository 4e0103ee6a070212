package bootstrap

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/snackbase/snackbase-go/config"
	"github.com/snackbase/snackbase-go/errors"
	"github.com/snackbase/snackbase-go/logger"
)

type testConfig struct {
	config.ServiceConfig
}

func newTestConfig(name string) *testConfig {
	return &testConfig{ServiceConfig: config.ServiceConfig{Name: name, Version: "1.0.0"}}
}

func newTestApp(t *testing.T) (*App[*testConfig], *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	app, err := NewApp(newTestConfig("test-svc"), WithLogWriter(&buf), WithSignalHandling(false))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app, &buf
}

func TestNewApp(t *testing.T) {
	app, _ := newTestApp(t)
	if app.Name != "test-svc" || app.Version != "1.0.0" {
		t.Errorf("unexpected identity %s %s", app.Name, app.Version)
	}
	if app.Cfg.Environment != "development" {
		t.Errorf("expected defaults applied, got environment %q", app.Cfg.Environment)
	}
	if app.gracefulTimeout != defaultGracefulTimeout {
		t.Errorf("expected default graceful timeout, got %v", app.gracefulTimeout)
	}
}

func TestNewApp_ValidationIsConfigurationError(t *testing.T) {
	_, err := NewApp(newTestConfig(""))
	if err == nil {
		t.Fatal("expected validation error for missing name")
	}
	if errors.FromError(err).Code != errors.ErrCodeConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestNewApp_Options(t *testing.T) {
	app, err := NewApp(newTestConfig("svc"),
		WithLogger(logger.Nop()),
		WithGracefulTimeout(time.Second),
	)
	if err != nil {
		t.Fatal(err)
	}
	if app.gracefulTimeout != time.Second {
		t.Errorf("expected 1s, got %v", app.gracefulTimeout)
	}
}

func TestRunTask_Order(t *testing.T) {
	app, _ := newTestApp(t)
	var order []string

	app.OnStart(func(context.Context) error {
		order = append(order, "start1")
		app.OnStop(func(context.Context) error {
			order = append(order, "stop1")
			return nil
		})
		return nil
	})
	app.OnStart(func(context.Context) error {
		order = append(order, "start2")
		app.OnStop(func(context.Context) error {
			order = append(order, "stop2")
			return nil
		})
		return nil
	})

	err := app.RunTask(context.Background(), func(context.Context) error {
		order = append(order, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}

	want := "start1,start2,task,stop2,stop1"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestRunTask_TaskErrorWins(t *testing.T) {
	app, _ := newTestApp(t)
	taskErr := stderrors.New("task failed")
	app.OnStop(func(context.Context) error { return stderrors.New("stop failed") })

	err := app.RunTask(context.Background(), func(context.Context) error { return taskErr })
	if !stderrors.Is(err, taskErr) {
		t.Errorf("expected task error, got %v", err)
	}
}

func TestRunTask_StopErrorReturned(t *testing.T) {
	app, _ := newTestApp(t)
	stopErr := stderrors.New("stop failed")
	ran := false
	app.OnStop(func(context.Context) error { return stopErr })
	app.OnStop(func(context.Context) error { ran = true; return nil })

	err := app.RunTask(context.Background(), func(context.Context) error { return nil })
	if !stderrors.Is(err, stopErr) {
		t.Errorf("expected stop error, got %v", err)
	}
	if !ran {
		t.Error("expected every stop hook to run")
	}
}

func TestRunTask_StartFailureReleasesAndSkipsTask(t *testing.T) {
	app, _ := newTestApp(t)
	startErr := errors.Configuration("bad base url")
	released := false

	app.OnStart(func(context.Context) error {
		app.OnStop(func(context.Context) error { released = true; return nil })
		return nil
	})
	app.OnStart(func(context.Context) error { return startErr })

	ranTask := false
	err := app.RunTask(context.Background(), func(context.Context) error {
		ranTask = true
		return nil
	})
	if ranTask {
		t.Error("task should not run after a failed start")
	}
	if !released {
		t.Error("expected stop hooks registered before the failure to run")
	}
	if errors.FromError(err).Code != errors.ErrCodeConfiguration {
		t.Errorf("expected the start error to keep its code, got %v", err)
	}
}

func TestRunTask_Cancellation(t *testing.T) {
	app, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := app.RunTask(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestShutdown_RunsHooksOnce(t *testing.T) {
	app, _ := newTestApp(t)
	calls := 0
	app.OnStop(func(context.Context) error { calls++; return nil })

	_ = app.Shutdown(context.Background())
	_ = app.Shutdown(context.Background())
	if calls != 1 {
		t.Errorf("expected 1 stop call, got %d", calls)
	}
}

func TestSummary_Logged(t *testing.T) {
	app, buf := newTestApp(t)
	app.OnStart(func(context.Context) error {
		app.Summary.TrackClient("snackbase", "http://localhost:8000", "http")
		app.Summary.TrackInfrastructure("session", "file", "/tmp/tokens.json")
		app.Summary.TrackTools("snackbase_login", "snackbase_status")
		return nil
	})

	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"Started", "http://localhost:8000", "snackbase_status", "/tmp/tokens.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log to contain %q, got %s", want, out)
		}
	}
}

func TestSummary_Fields(t *testing.T) {
	s := NewSummary("svc", "2.0.0")
	s.SetStartupDuration(1500 * time.Millisecond)
	f := s.Fields()
	if f["startup_ms"] != int64(1500) {
		t.Errorf("expected startup_ms=1500, got %v", f["startup_ms"])
	}
	if _, ok := f["clients"]; ok {
		t.Error("empty sections should be omitted")
	}
}
