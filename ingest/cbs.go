/*
Package ingest refreshes index series from their public feeds.

PURPOSE:
  The engine only READS index data; this package is the job that keeps the
  data current. Two feeds:

  - CBS (Central Bureau of Statistics): the CPI family, JSON API, published
    monthly on the 15th for the previous month.
  - Bank of Israel: USD/EUR representative rates, XML feed, business-daily.

  Values are upserted into the store as-is; the feed is authoritative and
  corrected publications replace earlier rows. The engine's calculations
  stay pure - they never reach a network.
*/
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rentmate/linkage-engine/linkage"
)

// DefaultCBSBaseURL is the statistics bureau's price-index endpoint.
const DefaultCBSBaseURL = "https://api.cbs.gov.il/index/data/price_selected_b"

// cbsSeriesIDs maps index types to the bureau's series identifiers.
var cbsSeriesIDs = map[linkage.IndexType]string{
	linkage.IndexCPI:          "120010",
	linkage.IndexHousing:      "40010",
	linkage.IndexConstruction: "200010",
}

// CBSClient fetches CPI-family series from the CBS JSON API.
type CBSClient struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

// NewCBSClient creates a client for the given endpoint; empty baseURL uses
// the public API.
func NewCBSClient(baseURL string, log *logrus.Logger) *CBSClient {
	if baseURL == "" {
		baseURL = DefaultCBSBaseURL
	}
	return &CBSClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// cbsResponse mirrors the feed's envelope. Points arrive under "month" for
// monthly series; older endpoint revisions used "data".
type cbsResponse struct {
	Month []cbsPoint `json:"month"`
	Data  []cbsPoint `json:"data"`
}

type cbsPoint struct {
	Date  string  `json:"date"` // "YYYY-MM" or "YYYY-MM-DD"
	Value float64 `json:"value"`
}

// FetchSeries fetches all published points of one CPI-family series.
func (c *CBSClient) FetchSeries(ctx context.Context, t linkage.IndexType) ([]linkage.IndexPoint, error) {
	id, ok := cbsSeriesIDs[t]
	if !ok {
		return nil, &linkage.InvalidInputError{Field: "type", Reason: string(t) + " is not a CBS series"}
	}

	url := fmt.Sprintf("%s?id=%s&format=json&download=false", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", linkage.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: CBS returned status %d", linkage.ErrStoreUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed cbsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse CBS response: %w", err)
	}
	raw := parsed.Month
	if len(raw) == 0 {
		raw = parsed.Data
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no data points in CBS response for %s", t)
	}

	points := make([]linkage.IndexPoint, 0, len(raw))
	for _, p := range raw {
		if len(p.Date) < 7 || p.Value <= 0 {
			continue // skip malformed rows rather than poisoning the series
		}
		month, err := linkage.ParseMonth(p.Date[:7])
		if err != nil {
			continue
		}
		points = append(points, linkage.IndexPoint{
			Type:  t,
			Month: month,
			Value: decimal.NewFromFloat(p.Value),
		})
	}

	c.log.WithFields(logrus.Fields{"index": t, "points": len(points)}).Info("fetched CBS series")
	return points, nil
}
