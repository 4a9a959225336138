package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Kodiak/services/detector/config"
	"github.com/AleutianAI/Kodiak/services/detector/engine"
	"github.com/AleutianAI/Kodiak/services/detector/knowledge"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(t *testing.T) *engine.Detector {
	t.Helper()
	kb, err := knowledge.Load()
	if err != nil {
		t.Fatalf("loading knowledge base: %v", err)
	}
	return engine.New(config.Default(), kb, nil)
}

func TestDetectionMiddleware(t *testing.T) {
	d := newEngine(t)
	router := gin.New()
	router.Use(Detection(d))

	var sawCaps, sawResult bool
	var requestID string
	router.GET("/probe", func(c *gin.Context) {
		_, sawCaps = GetCapabilities(c)
		_, sawResult = GetResult(c)
		requestID = GetRequestID(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if !sawCaps || !sawResult {
		t.Error("handler did not see the detection context values")
	}
	if requestID == "" {
		t.Error("request id not assigned")
	}
	if w.Header().Get(HeaderRequestID) != requestID {
		t.Error("request id header does not match context value")
	}
	if got := w.Header().Get(HeaderBrowser); got != "firefox/120" {
		t.Errorf("browser header = %q, want firefox/120", got)
	}
	if got := w.Header().Get(HeaderCacheHit); got != "miss" {
		t.Errorf("cache header = %q, want miss", got)
	}
}

func TestDetectionMiddlewarePropagatesclientRequestID(t *testing.T) {
	d := newEngine(t)
	router := gin.New()
	router.Use(Detection(d))
	router.GET("/probe", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderRequestID, "edge-assigned-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(HeaderRequestID); got != "edge-assigned-id" {
		t.Errorf("request id = %q, want the caller's", got)
	}
}

func TestGetHelpersWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if _, ok := GetCapabilities(c); ok {
		t.Error("expected no capabilities on a bare context")
	}
	if _, ok := GetResult(c); ok {
		t.Error("expected no result on a bare context")
	}
	if GetRequestID(c) != "" {
		t.Error("expected empty request id on a bare context")
	}
}
