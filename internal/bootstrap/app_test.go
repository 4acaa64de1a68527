package bootstrap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"jar-translator/internal/llm/provider"
	"jar-translator/internal/shared/config"
	"jar-translator/internal/shared/telemetry"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		ScratchDir:      t.TempDir(),
		QueueMaxSize:    3,
		BatchSize:       10,
		BatchWindow:     2,
		BatchTimeout:    time.Second,
		ReviewMode:      true,
		FileMaxAge:      time.Hour,
		CleanupInterval: time.Hour,
	}
}

func TestBuildWiresInMemoryApp(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	gin.SetMode(gin.TestMode)

	app, err := Build(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.DB != nil {
		t.Fatalf("expected no database without DATABASE_URL")
	}
	if app.Queue.Cap() != 3 {
		t.Fatalf("expected queue capacity 3, got %d", app.Queue.Cap())
	}
	if !app.TaskService.ReviewMode || app.TaskService.Scheduler.BatchSize != 10 {
		t.Fatalf("task service not configured: %+v", app.TaskService.Scheduler)
	}
	if app.Janitor == nil || app.Janitor.MaxAge != time.Hour {
		t.Fatalf("janitor not configured")
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/translate/bytecode/list", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("list expected 200, got %d", resp.Code)
	}
}

func TestBuildRejectsIncompleteS3Config(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	cfg := testConfig(t)
	cfg.ObjectStoreType = "s3"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Fatalf("expected error without bucket and region")
	}
}

func TestTranslatorFactoryValidatesModel(t *testing.T) {
	factory := translatorFactory(testConfig(t))
	if _, err := factory("Mystery", "key"); !errors.Is(err, provider.ErrUnknownModel) {
		t.Fatalf("expected unknown model error, got %v", err)
	}
	tr, err := factory("openai", "key")
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	tr.Close()
}
