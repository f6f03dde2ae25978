package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{
			name:   "no checks",
			checks: nil,
			want:   StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"a": func(ctx context.Context) error { return nil },
				"b": func(ctx context.Context) error { return nil },
			},
			want: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"a": func(ctx context.Context) error { return nil },
				"b": func(ctx context.Context) error { return errors.New("no healthy servers") },
			},
			want: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}
			status := c.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("Status = %q, want %q", status.Status, tt.want)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("expected %d results, got %d", len(tt.checks), len(status.Checks))
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	result := status.Checks["slow"]
	if result.Status != StatusUnhealthy || result.Message != ErrCheckTimeout.Error() {
		t.Errorf("expected timeout result, got %+v", result)
	}
}

func TestDraining(t *testing.T) {
	c := New(time.Second)
	c.SetDraining(true)

	w := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, ReadyPath, nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 while draining, got %d", w.Code)
	}

	c.SetDraining(false)
	w = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, ReadyPath, nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestRegister(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("upstream:api", func(ctx context.Context) error { return errors.New("down") })

	mux := http.NewServeMux()
	Register(mux, c, "1.2.3", "abc", "today")

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, LivePath, http.StatusOK},
		{http.MethodHead, LivePath, http.StatusOK},
		{http.MethodPost, LivePath, http.StatusMethodNotAllowed},
		{http.MethodGet, ReadyPath, http.StatusServiceUnavailable},
		{http.MethodGet, VersionPath, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, w.Code)
			}
			if tt.method == http.MethodHead && w.Body.Len() != 0 {
				t.Error("HEAD response must not have a body")
			}
		})
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, VersionPath, nil))
	var info VersionInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("invalid version JSON: %v", err)
	}
	if info.Version != "1.2.3" {
		t.Errorf("Version = %q, want 1.2.3", info.Version)
	}
}

func TestListChecks(t *testing.T) {
	c := New(0)
	c.RegisterCheck("b", func(context.Context) error { return nil })
	c.RegisterCheck("a", func(context.Context) error { return nil })
	c.UnregisterCheck("b")

	names := c.ListChecks()
	if len(names) != 1 || names[0] != "a" {
		t.Errorf("ListChecks() = %v, want [a]", names)
	}
}
