package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func scrape(testContext *testing.T, collector *Metrics) string {
	testContext.Helper()
	recorder := httptest.NewRecorder()
	collector.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected metrics endpoint to respond 200, got %d", recorder.Code)
	}
	return recorder.Body.String()
}

func expectSample(testContext *testing.T, exposition, sample string) {
	testContext.Helper()
	for _, line := range strings.Split(exposition, "\n") {
		if line == sample {
			return
		}
	}
	testContext.Fatalf("expected sample %q in exposition", sample)
}

func TestMiddlewareCountsRouteTemplates(testContext *testing.T) {
	gin.SetMode(gin.TestMode)
	collector := New()

	router := gin.New()
	router.Use(collector.Middleware())
	router.GET("/communities/:id/messages", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	for _, path := range []string{"/communities/1/messages", "/communities/2/messages", "/missing", "/metrics"} {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	}

	exposition := scrape(testContext, collector)
	expectSample(testContext, exposition, `mindnest_http_requests_total{method="GET",route="/communities/:id/messages",status="200"} 2`)
	expectSample(testContext, exposition, `mindnest_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	expectSample(testContext, exposition, `mindnest_http_inflight_requests 0`)
	if strings.Contains(exposition, `route="/metrics"`) {
		testContext.Fatalf("expected scrapes to be excluded from request metrics")
	}
}

func TestDomainCollectors(testContext *testing.T) {
	collector := New()

	collector.ObserveUpstream("generative", "success")
	collector.ObserveUpstream("generative", "success")
	collector.ObserveUpstream("speech", "upstream_error")

	collector.SubscriberOpened()
	collector.SubscriberOpened()
	collector.SubscriberClosed()

	collector.RecordStreakResets(3)
	collector.RecordStreakResets(0)

	exposition := scrape(testContext, collector)
	expectSample(testContext, exposition, `mindnest_relay_upstream_calls_total{outcome="success",provider="generative"} 2`)
	expectSample(testContext, exposition, `mindnest_relay_upstream_calls_total{outcome="upstream_error",provider="speech"} 1`)
	expectSample(testContext, exposition, `mindnest_community_realtime_subscribers 1`)
	expectSample(testContext, exposition, `mindnest_challenge_streak_resets_total 3`)
}
