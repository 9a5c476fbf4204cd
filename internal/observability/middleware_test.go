package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRequestMiddlewareLogsAndCountsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(RequestLogger(logger), RequestMetricsMiddleware("mw-test"))
	r.GET("/zones/:zone", func(c *gin.Context) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "device unresponsive"})
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/zones/3", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}

	line := buf.String()
	for _, want := range []string{`"level":"error"`, `"zone":"3"`, `"path":"/zones/:zone"`, `"status":503`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %s: %s", want, line)
		}
	}

	got := testutil.ToFloat64(httpRequests.WithLabelValues("mw-test", "GET", "/zones/:zone", "503"))
	if got != 1 {
		t.Fatalf("request count=%v want 1", got)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope/42", nil))
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("mw-test", "GET", "unmatched", "404")); got != 1 {
		t.Fatalf("unmatched count=%v want 1", got)
	}
}
