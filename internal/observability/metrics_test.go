package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesRankingCollectors(t *testing.T) {
	RankingCache().WithLabelValues("hit").Inc()
	require.GreaterOrEqual(t, testutil.ToFloat64(RankingCache().WithLabelValues("hit")), 1.0)

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "ksicht_ranking_cache_total"))
}
