package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

func TestMetrics_Disabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	// Must be safe no-ops.
	m.ActionCompleted(reconcile.ActionCreate, reconcile.StatusSucceeded)
	m.ReadinessPolled(reconcile.ResourceRef{Type: reconcile.ResourceEnvironment}, reconcile.ReadinessBusy)

	if m.Handler() == nil {
		t.Fatal("Expected a handler even when disabled")
	}
}

func TestMetrics_CountersExposed(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, Namespace: "nimbusctl"})

	m.ActionCompleted(reconcile.ActionCreate, reconcile.StatusSucceeded)
	m.ActionCompleted(reconcile.ActionCreate, reconcile.StatusSucceeded)
	m.ReadinessPolled(reconcile.ResourceRef{Type: reconcile.ResourcePipeline}, reconcile.ReadinessBusy)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `nimbusctl_actions_total{action="create",status="succeeded"} 2`) {
		t.Errorf("Expected action counter in scrape output:\n%s", body)
	}
	if !strings.Contains(body, `nimbusctl_readiness_polls_total{readiness="busy",resource_type="pipeline"} 1`) {
		t.Errorf("Expected poll counter in scrape output:\n%s", body)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug": "debug",
		"info":  "info",
		"warn":  "warn",
		"error": "error",
		"bogus": "info",
		"":      "info",
	}
	for input, want := range cases {
		if got := parseLevel(input).String(); got != want {
			t.Errorf("parseLevel(%q): expected %s, got %s", input, want, got)
		}
	}
}
