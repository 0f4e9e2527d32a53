package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	seen []observation
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.seen = append(r.seen, observation{method: method, route: path, status: status})
}

func TestMetricsLabelsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(obs, "/metrics"))
	router.GET("/scheduled-reports/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, target := range []string{"/scheduled-reports/1", "/scheduled-reports/2", "/metrics", "/wp-admin.php"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	assert.Equal(t, []observation{
		{method: http.MethodGet, route: "/scheduled-reports/:id", status: http.StatusOK},
		{method: http.MethodGet, route: "/scheduled-reports/:id", status: http.StatusOK},
		{method: http.MethodGet, route: unmatchedRoute, status: http.StatusNotFound},
	}, obs.seen)
}
