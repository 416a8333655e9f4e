package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/models"
)

const (
	testvilleGeocoding = `{"results":[{"name":"Testville","country":"Testland","admin1":"Test State","timezone":"UTC","latitude":10.0,"longitude":20.0}]}`
	testvilleForecast  = `{"latitude":10.0,"longitude":20.0,"current_weather":{"time":"2024-01-01T00:00:00","temperature":20.0,"windspeed":5.0}}`
)

type upstream struct {
	geocoding      string
	geocodingCode  int
	forecast       string
	forecastCode   int
	delay          time.Duration
	geocodingCalls atomic.Int32
	lastForecast   atomic.Value
}

func newUpstream(t *testing.T, u *upstream) (*httptest.Server, *config.Config) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u.delay > 0 {
			time.Sleep(u.delay)
		}
		switch r.URL.Path {
		case "/v1/search":
			u.geocodingCalls.Add(1)
			if u.geocodingCode != 0 {
				w.WriteHeader(u.geocodingCode)
			}
			w.Write([]byte(u.geocoding))
		case "/v1/forecast":
			u.lastForecast.Store(r.URL.Query())
			if u.forecastCode != 0 {
				w.WriteHeader(u.forecastCode)
			}
			w.Write([]byte(u.forecast))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		CityName:     "Testville",
		GeocodingURL: srv.URL + "/v1/search",
		WeatherURL:   srv.URL + "/v1/forecast",
		HTTPTimeout:  5 * time.Second,
	}
	return srv, cfg
}

func TestResolve_Geocoding(t *testing.T) {
	u := &upstream{geocoding: testvilleGeocoding}
	srv, cfg := newUpstream(t, u)
	r := NewResolver(cfg, srv.Client(), zaptest.NewLogger(t))

	meta, err := r.Resolve(context.Background(), "testville")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := models.CityMetadata{
		CityName:  "Testville",
		Country:   "Testland",
		Admin1:    "Test State",
		Timezone:  "UTC",
		Latitude:  10.0,
		Longitude: 20.0,
		Source:    models.SourceGeocoding,
	}
	if meta != want {
		t.Errorf("Resolve() = %+v, want %+v", meta, want)
	}
}

func TestResolve_FallsBackToRequestedName(t *testing.T) {
	u := &upstream{geocoding: `{"results":[{"latitude":1.25,"longitude":-2.5}]}`}
	srv, cfg := newUpstream(t, u)
	r := NewResolver(cfg, srv.Client(), zaptest.NewLogger(t))

	meta, err := r.Resolve(context.Background(), "Nowhere")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if meta.CityName != "Nowhere" || meta.Latitude != 1.25 || meta.Longitude != -2.5 {
		t.Errorf("Resolve() = %+v", meta)
	}
}

func TestResolve_ManualOverride(t *testing.T) {
	u := &upstream{geocoding: testvilleGeocoding}
	srv, cfg := newUpstream(t, u)
	cfg.Override = &config.Coordinates{Latitude: 16.5, Longitude: 80.6}
	r := NewResolver(cfg, srv.Client(), zaptest.NewLogger(t))

	meta, err := r.Resolve(context.Background(), "Vijayawada")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if meta.Source != models.SourceManual {
		t.Errorf("Source = %q, want %q", meta.Source, models.SourceManual)
	}
	if meta.CityName != "Vijayawada" || meta.Latitude != 16.5 || meta.Longitude != 80.6 {
		t.Errorf("Resolve() = %+v", meta)
	}
	if meta.Country != "" || meta.Admin1 != "" || meta.Timezone != "" {
		t.Errorf("manual override should not be enriched: %+v", meta)
	}
	if n := u.geocodingCalls.Load(); n != 0 {
		t.Errorf("geocoding calls = %d, want 0", n)
	}
}

func TestResolve_Failures(t *testing.T) {
	tests := []struct {
		name string
		u    *upstream
	}{
		{"empty results", &upstream{geocoding: `{"results":[]}`}},
		{"no results key", &upstream{geocoding: `{"generationtime_ms":0.5}`}},
		{"missing longitude", &upstream{geocoding: `{"results":[{"name":"X","latitude":1.0}]}`}},
		{"server error", &upstream{geocoding: `oops`, geocodingCode: http.StatusInternalServerError}},
		{"bad json", &upstream{geocoding: `{"results":`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, cfg := newUpstream(t, tt.u)
			r := NewResolver(cfg, srv.Client(), zaptest.NewLogger(t))

			_, err := r.Resolve(context.Background(), "X")
			if !errors.Is(err, ErrResolution) {
				t.Fatalf("Resolve() error = %v, want ErrResolution", err)
			}
		})
	}
}

func TestResolve_NetworkFailure(t *testing.T) {
	cfg := &config.Config{GeocodingURL: "http://127.0.0.1:1/v1/search"}
	r := NewResolver(cfg, &http.Client{Timeout: time.Second}, zaptest.NewLogger(t))

	_, err := r.Resolve(context.Background(), "X")
	if !errors.Is(err, ErrResolution) {
		t.Fatalf("Resolve() error = %v, want ErrResolution", err)
	}
}

func TestFetchCurrent(t *testing.T) {
	u := &upstream{forecast: testvilleForecast}
	srv, cfg := newUpstream(t, u)
	f := NewFetcher(cfg, srv.Client(), zaptest.NewLogger(t))

	cw, err := f.FetchCurrent(context.Background(), models.CityMetadata{Latitude: 10, Longitude: 20.5})
	if err != nil {
		t.Fatalf("FetchCurrent() error = %v", err)
	}
	if cw.Time == nil || *cw.Time != "2024-01-01T00:00:00" {
		t.Errorf("Time = %v", cw.Time)
	}
	if cw.Temperature == nil || *cw.Temperature != 20.0 {
		t.Errorf("Temperature = %v", cw.Temperature)
	}
	if cw.WindSpeed == nil || *cw.WindSpeed != 5.0 {
		t.Errorf("WindSpeed = %v", cw.WindSpeed)
	}

	q := u.lastForecast.Load().(url.Values)
	if q.Get("latitude") != "10" || q.Get("longitude") != "20.5" || q.Get("current_weather") != "true" {
		t.Errorf("query = %v", q)
	}
}

func TestFetchCurrent_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing current_weather", `{"latitude":10}`, 0},
		{"null current_weather", `{"current_weather":null}`, 0},
		{"empty current_weather", `{"current_weather":{}}`, 0},
		{"bad status", `{"error":true,"reason":"bad latitude"}`, http.StatusBadRequest},
		{"not json", `<html>`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, cfg := newUpstream(t, &upstream{forecast: tt.body, forecastCode: tt.code})
			f := NewFetcher(cfg, srv.Client(), zaptest.NewLogger(t))

			_, err := f.FetchCurrent(context.Background(), models.CityMetadata{Latitude: 1, Longitude: 2})
			if !errors.Is(err, ErrFetch) {
				t.Fatalf("FetchCurrent() error = %v, want ErrFetch", err)
			}
		})
	}
}

func TestFetchCurrent_Timeout(t *testing.T) {
	srv, cfg := newUpstream(t, &upstream{forecast: testvilleForecast, delay: 200 * time.Millisecond})
	client := &http.Client{Timeout: 20 * time.Millisecond}
	f := NewFetcher(cfg, client, zaptest.NewLogger(t))
	_ = srv

	_, err := f.FetchCurrent(context.Background(), models.CityMetadata{Latitude: 1, Longitude: 2})
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("FetchCurrent() error = %v, want ErrFetch", err)
	}
}

func TestExtract(t *testing.T) {
	srv, cfg := newUpstream(t, &upstream{geocoding: testvilleGeocoding, forecast: testvilleForecast})
	x := NewExtractor(cfg, srv.Client(), zaptest.NewLogger(t))

	got, err := x.Extract(context.Background(), "Testville")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if *got.CityName != "Testville" || *got.Country != "Testland" || *got.Admin1 != "Test State" {
		t.Errorf("metadata = %v %v %v", *got.CityName, *got.Country, *got.Admin1)
	}
	if *got.Latitude != 10 || *got.Longitude != 20 {
		t.Errorf("coords = %v, %v", *got.Latitude, *got.Longitude)
	}
	if *got.Timestamp != "2024-01-01T00:00:00" || *got.Temperature != 20 || *got.WindSpeed != 5 {
		t.Errorf("reading = %v %v %v", *got.Timestamp, *got.Temperature, *got.WindSpeed)
	}
}

func TestExtract_ResolutionFailureSkipsFetch(t *testing.T) {
	u := &upstream{geocoding: `{"results":[]}`, forecast: testvilleForecast}
	srv, cfg := newUpstream(t, u)
	x := NewExtractor(cfg, srv.Client(), zaptest.NewLogger(t))

	_, err := x.Extract(context.Background(), "Atlantis")
	if !errors.Is(err, ErrResolution) {
		t.Fatalf("Extract() error = %v, want ErrResolution", err)
	}
	if u.lastForecast.Load() != nil {
		t.Error("forecast endpoint should not be called after a resolution failure")
	}
}

func TestDump_WriteAndReadBack(t *testing.T) {
	srv, cfg := newUpstream(t, &upstream{geocoding: testvilleGeocoding, forecast: testvilleForecast})
	x := NewExtractor(cfg, srv.Client(), zaptest.NewLogger(t))

	d, err := x.Dump(context.Background(), "testville")
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if d.RequestedCity != "testville" || d.CityMetadata.Source != models.SourceGeocoding {
		t.Errorf("dump header = %q %q", d.RequestedCity, d.CityMetadata.Source)
	}
	if d.Request.URL != cfg.WeatherURL || d.Request.Params["current_weather"] != "true" {
		t.Errorf("request = %+v", d.Request)
	}
	if _, err := time.Parse(time.RFC3339, d.CapturedAt); err != nil {
		t.Errorf("CapturedAt = %q: %v", d.CapturedAt, err)
	}

	path := filepath.Join(t.TempDir(), "raw.json")
	if err := WriteDump(path, d); err != nil {
		t.Fatalf("WriteDump() error = %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(b, &generic); err != nil {
		t.Fatalf("dump is not JSON: %v", err)
	}
	for _, key := range []string{"requested_city", "city_metadata", "request", "response", "captured_at"} {
		if _, ok := generic[key]; !ok {
			t.Errorf("dump missing key %q", key)
		}
	}
	if !strings.Contains(string(b), "\n  \"") {
		t.Error("dump should be indented")
	}

	extracted, requested, err := ReadDump(path)
	if err != nil {
		t.Fatalf("ReadDump() error = %v", err)
	}
	if requested != "testville" {
		t.Errorf("requested city = %q", requested)
	}
	if *extracted.CityName != "Testville" || *extracted.Latitude != 10 || *extracted.Longitude != 20 {
		t.Errorf("extracted location = %v %v %v", *extracted.CityName, *extracted.Latitude, *extracted.Longitude)
	}
	if *extracted.Temperature != 20 || *extracted.Timestamp != "2024-01-01T00:00:00" {
		t.Errorf("extracted reading = %v %v", *extracted.Temperature, *extracted.Timestamp)
	}
}

func TestReadDump_LegacyCoordinateKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	legacy := `{
  "requested_city": "Pune",
  "city_metadata": {"city_name": "Pune", "lat": 18.52, "longi": 73.85},
  "response": {"current_weather": {"time": "2024-06-01T06:00", "temperature": 28.1}}
}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	extracted, _, err := ReadDump(path)
	if err != nil {
		t.Fatalf("ReadDump() error = %v", err)
	}
	if *extracted.Latitude != 18.52 || *extracted.Longitude != 73.85 {
		t.Errorf("coords = %v, %v", *extracted.Latitude, *extracted.Longitude)
	}
	if extracted.WindSpeed != nil {
		t.Errorf("WindSpeed = %v, want nil", *extracted.WindSpeed)
	}
}

func TestReadDump_MissingCurrentWeather(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"requested_city":"X","response":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadDump(path); !errors.Is(err, ErrFetch) {
		t.Fatalf("ReadDump() error = %v, want ErrFetch", err)
	}
}
