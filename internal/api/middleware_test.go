package api

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestTimeoutMiddlewareTimesOut(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TimeoutMiddleware(20 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		time.Sleep(200 * time.Millisecond)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if w.Code != http.StatusRequestTimeout {
		t.Fatalf("status = %d, want 408", w.Code)
	}
}

func TestTimeoutMiddlewareReleasesWorkers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TimeoutMiddleware(10 * time.Millisecond))
	release := make(chan struct{})
	r.GET("/slow", func(c *gin.Context) {
		<-release
	})

	before := runtime.NumGoroutine()

	const n = 8
	for i := 0; i < n; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
		if w.Code != http.StatusRequestTimeout {
			t.Fatalf("status = %d, want 408", w.Code)
		}
	}

	close(release)
	time.Sleep(100 * time.Millisecond)

	after := runtime.NumGoroutine()
	if after-before >= n {
		t.Fatalf("worker goroutines leaked: %d before, %d after", before, after)
	}
}
