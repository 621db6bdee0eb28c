package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveIngest(t *testing.T) {
	beforeOK := testutil.ToFloat64(ingestRuns.WithLabelValues("success"))
	beforeErr := testutil.ToFloat64(ingestRuns.WithLabelValues("error"))
	beforeAdded := testutil.ToFloat64(ingestAdded)

	ObserveIngest(5, 2, nil)
	ObserveIngest(0, 0, errors.New("disk full"))

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ingestRuns.WithLabelValues("success")))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(ingestRuns.WithLabelValues("error")))
	assert.Equal(t, beforeAdded+2, testutil.ToFloat64(ingestAdded))
	assert.NotZero(t, testutil.ToFloat64(ingestLastRun))
}

func TestObserveSourceFetch(t *testing.T) {
	ObserveSourceFetch("Test Feed", errors.New("timeout"))
	assert.Equal(t, 1.0, testutil.ToFloat64(sourceFetches.WithLabelValues("Test Feed", "error")))
}

func TestMiddleware_UsesRoutePath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/cpes/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/cpes/:id", "204"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cpes/abc", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/cpes/:id", "204")))
}
