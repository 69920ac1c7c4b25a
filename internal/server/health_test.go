package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func probe(t *testing.T, handler http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("health response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return rec, body
}

func TestLivenessHandler(t *testing.T) {
	sc := newTestServerContext(t)
	checker := NewHealthChecker(sc)

	rec, body := probe(t, checker.LivenessHandler(), "/healthz")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %v", body["status"])
	}
	if body["version"] != sc.Config().Version {
		t.Errorf("expected version %q, got %v", sc.Config().Version, body["version"])
	}
}

func TestReadinessHandler(t *testing.T) {
	sc := newTestServerContext(t)
	checker := NewHealthChecker(sc)

	t.Run("ready by default", func(t *testing.T) {
		rec, body := probe(t, checker.ReadinessHandler(), "/readyz")
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		checks := body["checks"].(map[string]any)
		if checks["ready"] != "ok" {
			t.Errorf("expected ready check ok, got %v", checks["ready"])
		}
	})

	t.Run("not ready after SetReady(false)", func(t *testing.T) {
		checker.SetReady(false)
		defer checker.SetReady(true)

		rec, body := probe(t, checker.ReadinessHandler(), "/readyz")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
		if body["status"] != "not ready" {
			t.Errorf("expected not ready status, got %v", body["status"])
		}
	})

	t.Run("not ready after shutdown", func(t *testing.T) {
		scDown := newTestServerContext(t)
		down := NewHealthChecker(scDown)
		if err := scDown.Shutdown(); err != nil {
			t.Fatalf("Shutdown failed: %v", err)
		}

		rec, body := probe(t, down.ReadinessHandler(), "/readyz")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
		checks := body["checks"].(map[string]any)
		if checks["shutdown"] != "shutting down" {
			t.Errorf("expected shutdown check, got %v", checks["shutdown"])
		}
	})
}

func TestDetailedHealthHandler(t *testing.T) {
	sc := newTestServerContext(t)
	checker := NewHealthChecker(sc)

	rec, body := probe(t, checker.DetailedHealthHandler(), "/healthz/detailed")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	cache, ok := body["cache"].(map[string]any)
	if !ok {
		t.Fatalf("expected cache status in %v", body)
	}
	if cache["enabled"] != true {
		t.Errorf("expected the cache to report enabled, got %v", cache["enabled"])
	}
	if cache["entries"].(float64) != 0 {
		t.Errorf("expected an empty cache, got %v entries", cache["entries"])
	}
	if cache["ttl_seconds"].(float64) != 60 {
		t.Errorf("expected a 60s TTL, got %v", cache["ttl_seconds"])
	}

	if body["static_tools"].(float64) != 0 {
		t.Errorf("expected zero static tools, got %v", body["static_tools"])
	}

	instr, ok := body["instrumentation"].(map[string]any)
	if !ok {
		t.Fatalf("expected instrumentation status in %v", body)
	}
	if instr["enabled"] != false {
		t.Errorf("expected instrumentation disabled without a provider, got %v", instr["enabled"])
	}
}

func TestRegisterHealthEndpoints(t *testing.T) {
	sc := newTestServerContext(t)
	checker := NewHealthChecker(sc)

	mux := http.NewServeMux()
	checker.RegisterHealthEndpoints(mux)

	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s returned %d, want 200", path, rec.Code)
		}
	}
}
