package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pos_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// result is "success" or the error code
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_login_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	SignupCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_signup_total",
			Help: "Signups by result",
		},
		[]string{"result"},
	)

	SaleCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_sales_total",
			Help: "Sale transactions by result",
		},
		[]string{"result"},
	)

	SaleAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_sales_amount_total",
			Help: "Sum of committed sale totals by payment method",
		},
		[]string{"payment_method"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(SignupCounter)
	prometheus.MustRegister(SaleCounter)
	prometheus.MustRegister(SaleAmount)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records count and latency for every routed request.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		labels := prometheus.Labels{
			"endpoint": endpoint,
			"method":   c.Request.Method,
			"status":   strconv.Itoa(c.Writer.Status()),
		}
		RequestDuration.With(labels).Observe(time.Since(start).Seconds())
		HTTPRequestCounter.With(labels).Inc()
	}
}

func RecordLogin(result string) {
	LoginCounter.With(prometheus.Labels{"result": result}).Inc()
}

func RecordSignup(result string) {
	SignupCounter.With(prometheus.Labels{"result": result}).Inc()
}

func RecordSale(result string) {
	SaleCounter.With(prometheus.Labels{"result": result}).Inc()
}

func RecordSaleAmount(paymentMethod string, amount float64) {
	SaleAmount.With(prometheus.Labels{"payment_method": paymentMethod}).Add(amount)
}
