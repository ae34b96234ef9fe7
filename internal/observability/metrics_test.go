package observability

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounterAndGauge(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("units_total", "Units")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Errorf("counter = %v, want 3", c.Value())
	}

	g := r.NewGauge("active", "Active")
	g.Inc()
	g.Inc()
	g.Dec()
	if g.Value() != 1 {
		t.Errorf("gauge = %v, want 1", g.Value())
	}
	g.Set(7)
	if g.Value() != 7 {
		t.Errorf("gauge = %v, want 7", g.Value())
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("gen_seconds", "Generation", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(0.5)
	h.ObserveDuration(20 * time.Second)

	var buf bytes.Buffer
	r.WritePrometheus(&buf)
	out := buf.String()

	for _, want := range []string{
		"# TYPE gen_seconds histogram\n",
		"gen_seconds_bucket{le=\"0.1\"} 1\n",
		"gen_seconds_bucket{le=\"1\"} 3\n",
		"gen_seconds_bucket{le=\"10\"} 3\n",
		"gen_seconds_bucket{le=\"+Inf\"} 4\n",
		"gen_seconds_sum 21.05\n",
		"gen_seconds_count 4\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if h.Count() != 4 {
		t.Errorf("Count = %d", h.Count())
	}
}

func TestWritePrometheusIsSorted(t *testing.T) {
	r := NewMetricsRegistry()
	r.NewCounter("b_total", "B").Inc()
	r.NewCounter("a_total", "A").Add(2)

	var buf bytes.Buffer
	r.WritePrometheus(&buf)
	out := buf.String()
	if strings.Index(out, "a_total 2") > strings.Index(out, "b_total 1") {
		t.Errorf("counters not sorted:\n%s", out)
	}
}

func TestGeneratorMetrics(t *testing.T) {
	m := NewGeneratorMetrics()
	m.RecordGeneration(time.Second, 5, 1, nil)
	m.RecordGeneration(time.Second, 0, 0, errors.New("defect"))
	m.RecordIndex(12)

	if m.LibrariesGenerated.Value() != 1 || m.LibraryFailures.Value() != 1 {
		t.Errorf("generated=%v failures=%v", m.LibrariesGenerated.Value(), m.LibraryFailures.Value())
	}
	if m.UnitsWritten.Value() != 5 || m.UnitsPruned.Value() != 1 {
		t.Errorf("units=%v pruned=%v", m.UnitsWritten.Value(), m.UnitsPruned.Value())
	}
	if m.GenerateDuration.Count() != 2 {
		t.Errorf("duration observations = %d", m.GenerateDuration.Count())
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %s", ct)
	}
	for _, want := range []string{
		"framebind_libraries_generated_total 1",
		"framebind_symbols_indexed_total 12",
		"framebind_active_generations 0",
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestMetricsSingleton(t *testing.T) {
	if Metrics() != Metrics() {
		t.Error("Metrics should return the same instance")
	}
}
