package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tally-dev/tally/internal/buildinfo"
)

// DefaultEndpoint serves `{"base": "USD", "rates": {...}}` at /<BASE>.
const DefaultEndpoint = "https://api.exchangerate-api.com/v4/latest"

// HTTPProvider fetches rates from a JSON endpoint of the
// exchangerate-api.com v4 shape.
type HTTPProvider struct {
	Endpoint string
	Client   *http.Client
	Now      func() time.Time
}

// NewHTTPProvider returns a provider with its own client and timeout.
func NewHTTPProvider(endpoint string, timeout time.Duration) *HTTPProvider {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPProvider{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
		Now:      time.Now,
	}
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Fetch issues GET <endpoint>/<base>.
func (p *HTTPProvider) Fetch(ctx context.Context, base string) (Table, error) {
	url := strings.TrimRight(p.Endpoint, "/") + "/" + base
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Table{}, fmt.Errorf("building rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "tally/"+buildinfo.Version)

	resp, err := p.Client.Do(req)
	if err != nil {
		return Table{}, fmt.Errorf("fetching rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Table{}, fmt.Errorf("fetching rates: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Table{}, fmt.Errorf("decoding rates: %w", err)
	}
	if len(payload.Rates) == 0 {
		return Table{}, fmt.Errorf("decoding rates: response has no rates")
	}

	t := Table{
		Base:      strings.ToUpper(payload.Base),
		Rates:     make(map[string]decimal.Decimal, len(payload.Rates)),
		Source:    SourceLive,
		FetchedAt: p.now(),
	}
	if t.Base == "" {
		t.Base = base
	}
	for code, r := range payload.Rates {
		t.Rates[strings.ToUpper(code)] = r
	}
	if t.Base != base {
		return t.Rebase(base)
	}
	return t, nil
}

func (p *HTTPProvider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
