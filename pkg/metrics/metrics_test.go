package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	srv := httptest.NewServer(promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()

	c.RecordBuild("built")
	c.RecordBuild("built")
	c.RecordBuild("empty")
	c.RecordRun(120, 2)
	c.RecordReport("acknowledged")
	c.RecordConfigSyncFailure()
	c.SetPoolSize(4)

	out := scrape(t, c)
	assert.Contains(t, out, `fuzzbot_builds_total{status="built"} 2`)
	assert.Contains(t, out, `fuzzbot_builds_total{status="empty"} 1`)
	assert.Contains(t, out, "fuzzbot_runs_total 1")
	assert.Contains(t, out, "fuzzbot_crashes_found_total 2")
	assert.Contains(t, out, `fuzzbot_reports_total{outcome="acknowledged"} 1`)
	assert.Contains(t, out, "fuzzbot_config_sync_failures_total 1")
	assert.Contains(t, out, "fuzzbot_project_pool_size 4")
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordBuild("built")
		c.RecordRun(1, 1)
		c.RecordReport("rejected")
		c.RecordConfigSyncFailure()
		c.SetPoolSize(1)
	})
}

func TestCollectorsAreIndependent(t *testing.T) {
	// each collector owns its registry, so two can coexist
	a := NewCollector()
	b := NewCollector()
	a.RecordBuild("built")
	assert.NotContains(t, scrape(t, b), `status="built"`)
}
