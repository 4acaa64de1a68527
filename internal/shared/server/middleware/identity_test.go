package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIdentityPrefersHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Identity())
	var got string
	router.GET("/x", func(c *gin.Context) {
		got = ClientIDFromContext(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Client-Id", "  browser-1 ")
	router.ServeHTTP(httptest.NewRecorder(), req)
	if got != "browser-1" {
		t.Fatalf("expected header id, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	router.ServeHTTP(httptest.NewRecorder(), req)
	if !strings.HasPrefix(got, "ip:") || strings.Contains(got, "203.0.113.7") || len(got) != len("ip:")+16 {
		t.Fatalf("expected hashed ip id, got %q", got)
	}
}
