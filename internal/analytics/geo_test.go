package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsLocalAddress(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"localhost", true},
		{"LOCALHOST", true},
		{"10.1.2.3", true},
		{"192.168.0.10", true},
		{"172.16.5.4", true},
		{"169.254.1.1", true},
		{"fe80::1", true},
		{"0.0.0.0", true},
		{"8.8.8.8", false},
		{"2001:4860:4860::8888", false},
		{"not-an-ip", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocalAddress(tt.ip))
		})
	}
}

func geoServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPGeolocator_Success(t *testing.T) {
	srv := geoServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/8.8.8.8", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","country":"United States","query":"8.8.8.8"}`))
	})

	g := NewHTTPGeolocator(srv.URL+"/json/", time.Second)
	country, err := g.Country(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "United States", country)
}

func TestHTTPGeolocator_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status_fail", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
		}},
		{"http_error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"status":"success","country":"Late"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := geoServer(t, tt.handler)
			g := NewHTTPGeolocator(srv.URL, 50*time.Millisecond)
			_, err := g.Country(context.Background(), "1.1.1.1")
			assert.ErrorIs(t, err, ErrLookupFailed)
		})
	}
}

type mapKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMapKV() *mapKV { return &mapKV{data: make(map[string]string)} }

func (m *mapKV) GetString(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapKV) SetString(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type countingGeo struct {
	calls   atomic.Int32
	country string
	err     error
}

func (c *countingGeo) Country(context.Context, string) (string, error) {
	c.calls.Add(1)
	return c.country, c.err
}

func TestCachedGeolocator(t *testing.T) {
	upstream := &countingGeo{country: "Canada"}
	kv := newMapKV()
	g := NewCachedGeolocator(upstream, kv, time.Hour, zap.NewNop())

	for i := 0; i < 3; i++ {
		country, err := g.Country(context.Background(), "24.48.0.1")
		require.NoError(t, err)
		assert.Equal(t, "Canada", country)
	}
	assert.Equal(t, int32(1), upstream.calls.Load())
	assert.Equal(t, "Canada", kv.data[GeoKeyPrefix+"24.48.0.1"])
}

func TestCachedGeolocator_FailureNotCached(t *testing.T) {
	upstream := &countingGeo{err: ErrLookupFailed}
	kv := newMapKV()
	g := NewCachedGeolocator(upstream, kv, time.Hour, zap.NewNop())

	_, err := g.Country(context.Background(), "24.48.0.1")
	assert.ErrorIs(t, err, ErrLookupFailed)
	_, err = g.Country(context.Background(), "24.48.0.1")
	assert.Error(t, err)
	assert.Equal(t, int32(2), upstream.calls.Load())
	assert.Empty(t, kv.data)
}
