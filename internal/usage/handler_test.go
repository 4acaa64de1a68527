package usage

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRootCountsVisitsAndStatsReportsThem(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService()
	if _, err := svc.RecordUsage(t.Context()); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}

	r := gin.New()
	h := NewHandler(svc)
	h.RegisterRoutes(r.Group("/api/v1"))
	h.RegisterDevRoutes(r.Group("/api/v1/dev"))

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("root: %d", resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	var stats Stats
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Visits != 3 || stats.Usage != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/dev/stats/reset", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("reset: %d", resp.Code)
	}
	got, _ := svc.Stats(t.Context())
	if got.Visits != 0 || got.Usage != 0 {
		t.Fatalf("expected zeroed stats, got %+v", got)
	}
}
