package costbasis

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/etnz/costbasis/date"
	"github.com/rs/zerolog"
)

// PriceFeed fetches latest prices from a JSON market-data endpoint. The
// engine itself never fetches anything: callers use a feed to build the
// PriceMap they pass in.
type PriceFeed struct {
	URL    string
	Path   string // JSONPath to the object of code to price, see DecodePrices
	Client *http.Client
}

// Fetch GETs the feed and decodes its prices.
func (f PriceFeed) Fetch(ctx context.Context) (PriceMap, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("price feed %q: %w", f.URL, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price feed %q: %w", f.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	prices, err := DecodePrices(resp.Body, f.Path)
	if err != nil {
		return nil, fmt.Errorf("price feed %q: %w", f.URL, err)
	}
	return prices, nil
}

// diskCache is an http.RoundTripper keeping successful responses on disk
// for the rest of the day.
type diskCache struct {
	base http.RoundTripper
	dir  string
	log  zerolog.Logger
}

// DailyCache returns a client caching successful responses in dir until the
// end of the day. An empty dir means the system temporary directory.
func DailyCache(dir string, log zerolog.Logger) *http.Client {
	if dir == "" {
		dir = os.TempDir()
	}
	return &http.Client{Transport: &diskCache{base: http.DefaultTransport, dir: dir, log: log}}
}

func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	// the key changes every day so that the cache expires daily.
	key := fmt.Sprintf("%s %s %s", date.Today(), req.Method, req.URL)
	file := filepath.Join(c.dir, fmt.Sprintf("costbasis-%x", sha1.Sum([]byte(key))))

	if content, err := os.ReadFile(file); err == nil {
		if resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req); err == nil {
			c.log.Debug().Str("url", req.URL.String()).Msg("http cache hit")
			return resp, nil
		}
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status", resp.StatusCode).Msg("http")
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if err := os.WriteFile(file, content, 0o600); err != nil {
		c.log.Warn().Err(err).Msg("cache write error ignored")
	}
	return resp, nil
}
