package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/casemap/internal/dashboard"
	"github.com/starford/casemap/internal/dataset"
	"github.com/starford/casemap/internal/sse"
	"github.com/starford/casemap/internal/testutil"
)

func testApp(t *testing.T, mutate func(*Config)) (*application, *Config) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Dataset.Path = testutil.WriteCSV(t, testutil.TwoDays...)
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	app, err := newApplication([]Option{WithConfig(cfg), WithLogOutput(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	return app, cfg
}

func testHandler(t *testing.T, mutate func(*Config)) (http.Handler, *dashboard.Service, *sse.Broker) {
	t.Helper()
	app, cfg := testApp(t, mutate)
	broker := sse.NewBroker()
	t.Cleanup(broker.Close)
	svc, _, err := app.loadService(context.Background(), app.logger(), func(snap *dashboard.Snapshot) {
		broker.Publish(newLoadedEvent(snap))
	})
	if err != nil {
		t.Fatalf("loadService: %v", err)
	}
	return newHandler(cfg, svc, broker), svc, broker
}

func TestNewApplication_RequiresConfig(t *testing.T) {
	if _, err := newApplication(nil); err == nil {
		t.Error("expected error without config")
	}
}

func TestLoadService_MissingDatasetIsFatal(t *testing.T) {
	app, _ := testApp(t, func(c *Config) { c.Dataset.Path = "/nonexistent/owid.csv" })
	_, _, err := app.loadService(context.Background(), app.logger(), nil)
	var le *dataset.LoadError
	if !errors.As(err, &le) {
		t.Errorf("err = %v, want LoadError", err)
	}
}

func TestHandler_Routes(t *testing.T) {
	h, _, _ := testHandler(t, nil)

	cases := []struct {
		target string
		status int
		substr string
	}{
		{"/health/live", http.StatusOK, `"ok"`},
		{"/health/ready", http.StatusOK, `"ok"`},
		{"/", http.StatusOK, "SARS-CoV-2 (COVID19) World Timeline"},
		{"/api/dates", http.StatusOK, `"2020-07-02"`},
		{"/api/figure?position=0", http.StatusOK, "Viewing: Jul 01 2020 00:00:00"},
		{"/api/figure?position=2", http.StatusUnprocessableEntity, `"max":1`},
		{"/api/summary", http.StatusOK, `"records":2`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.target, nil))
		if w.Code != tc.status {
			t.Errorf("%s = %d, want %d", tc.target, w.Code, tc.status)
		}
		if !strings.Contains(w.Body.String(), tc.substr) {
			t.Errorf("%s body missing %q: %s", tc.target, tc.substr, w.Body.String())
		}
	}
}

func TestHandler_ReadyBeforeLoad(t *testing.T) {
	_, cfg := testApp(t, nil)
	svc := dashboard.NewService(nil, cfg.Dataset.Columns, nil)
	broker := sse.NewBroker()
	t.Cleanup(broker.Close)
	h := newHandler(cfg, svc, broker)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready before load = %d, want 503", w.Code)
	}
}

func TestHandler_AuthOnlyOnAPI(t *testing.T) {
	h, _, _ := testHandler(t, func(c *Config) {
		c.Auth = AuthConfig{Mode: AuthModeToken, Token: "s3cret"}
	})

	cases := []struct {
		target string
		want   int
	}{
		{"/", http.StatusOK},
		{"/health/live", http.StatusOK},
		{"/api/dates", http.StatusUnauthorized},
		{"/api/dates?access_token=s3cret", http.StatusOK},
		{"/api/figure?position=0", http.StatusUnauthorized},
		{"/api/figure?position=0&access_token=nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.target, nil))
		if w.Code != tc.want {
			t.Errorf("%s = %d, want %d", tc.target, w.Code, tc.want)
		}
	}
}

func TestHandler_CORS(t *testing.T) {
	h, _, _ := testHandler(t, func(c *Config) {
		c.App.HTTP.CORSOrigins = []string{"https://dash.example.org"}
	})

	req := httptest.NewRequest(http.MethodGet, "/api/dates", nil)
	req.Header.Set("Origin", "https://dash.example.org")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example.org" {
		t.Errorf("allow origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "Etag") && !strings.Contains(got, "ETag") {
		t.Errorf("expose headers = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dates", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin allowed: %q", got)
	}
}

func TestHandler_RateLimit(t *testing.T) {
	h, _, _ := testHandler(t, func(c *Config) {
		c.App.HTTP.RateLimit = RateLimitConfig{RPS: 1, Burst: 1}
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dates", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	// Health checks are outside the limiter.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health under limit = %d", w.Code)
	}
}

func TestHandler_EventsReplayLoad(t *testing.T) {
	h, _, _ := testHandler(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx))

	body := w.Body.String()
	if !strings.Contains(body, "event: dataset.loaded") || !strings.Contains(body, `"max":1`) {
		t.Errorf("events body = %q", body)
	}
}

func TestResolve(t *testing.T) {
	_, cfg := testApp(t, nil)

	var out bytes.Buffer
	if err := Resolve(context.Background(), 1, false, &out, WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	var got resolveOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if got.Position != 1 || got.Date != "2020-07-02" || got.Label != "Viewing: Jul 02 2020 00:00:00" {
		t.Errorf("resolve = %+v", got)
	}

	out.Reset()
	if err := Resolve(context.Background(), 0, true, &out, WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"type": "choropleth"`) {
		t.Errorf("plotly output missing trace type:\n%s", out.String())
	}

	err := Resolve(context.Background(), 7, false, &out, WithConfig(cfg), WithLogOutput(io.Discard))
	var re *dataset.RangeError
	if !errors.As(err, &re) || re.Max() != 1 {
		t.Errorf("err = %v, want RangeError with max 1", err)
	}
}
