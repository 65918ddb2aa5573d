package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shawty-backend/internal/cache"

	"go.uber.org/zap"
)

// GeoKeyPrefix namespaces memoised lookups in the shared cache.
const GeoKeyPrefix = "geo:"

var ErrLookupFailed = errors.New("geolocation lookup failed")

// Geolocator resolves a public IP address to a country name.
type Geolocator interface {
	Country(ctx context.Context, ip string) (string, error)
}

// IsLocalAddress reports whether ip belongs to a development network:
// loopback, private, link-local, unspecified, or the literal "localhost".
func IsLocalAddress(ip string) bool {
	if strings.EqualFold(ip, "localhost") {
		return true
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}

// HTTPGeolocator queries an ip-api.com compatible endpoint: GET {base}/{ip}
// answering {"status": "success", "country": "..."}.
type HTTPGeolocator struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPGeolocator(baseURL string, timeout time.Duration) *HTTPGeolocator {
	return &HTTPGeolocator{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type geoResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	Message string `json:"message"`
}

func (g *HTTPGeolocator) Country(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrLookupFailed, err)
	}
	if body.Status != "success" || body.Country == "" {
		return "", fmt.Errorf("%w: %s %s", ErrLookupFailed, body.Status, body.Message)
	}

	return body.Country, nil
}

// CachedGeolocator memoises successful lookups. The upstream service is
// rate limited per source address, and a country rarely changes.
type CachedGeolocator struct {
	next Geolocator
	kv   cache.KV
	ttl  time.Duration
	log  *zap.Logger
}

func NewCachedGeolocator(next Geolocator, kv cache.KV, ttl time.Duration, log *zap.Logger) *CachedGeolocator {
	return &CachedGeolocator{next: next, kv: kv, ttl: ttl, log: log}
}

func (c *CachedGeolocator) Country(ctx context.Context, ip string) (string, error) {
	key := GeoKeyPrefix + ip

	country, ok, err := c.kv.GetString(ctx, key)
	if err != nil {
		c.log.Debug("geo cache read failed", zap.String("ip", ip), zap.Error(err))
	}
	if ok {
		return country, nil
	}

	country, err = c.next.Country(ctx, ip)
	if err != nil {
		return "", err
	}

	if err := c.kv.SetString(ctx, key, country, c.ttl); err != nil {
		c.log.Debug("geo cache write failed", zap.String("ip", ip), zap.Error(err))
	}
	return country, nil
}

var (
	_ Geolocator = (*HTTPGeolocator)(nil)
	_ Geolocator = (*CachedGeolocator)(nil)
)
