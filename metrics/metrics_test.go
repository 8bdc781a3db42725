package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/items/:id", "GET", "200"))
	for _, path := range []string{"/items/1", "/items/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/items/:id", "GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("unmatched", "GET", "404")))
}

func TestRecordHelpers(t *testing.T) {
	RecordLogin("success")
	RecordSignup("email_taken")
	RecordSale("success")
	RecordSaleAmount("cash", 25)
	RecordSaleAmount("cash", 5)

	assert.Equal(t, float64(1), testutil.ToFloat64(LoginCounter.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(SignupCounter.WithLabelValues("email_taken")))
	assert.Equal(t, float64(1), testutil.ToFloat64(SaleCounter.WithLabelValues("success")))
	assert.Equal(t, float64(30), testutil.ToFloat64(SaleAmount.WithLabelValues("cash")))
}
