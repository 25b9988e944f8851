package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rentmate/linkage-engine/linkage"
)

// DefaultBOIURL is the Bank of Israel representative-rates XML feed.
const DefaultBOIURL = "https://www.boi.org.il/currency.xml"

// boiCurrencyCodes maps the feed's currency codes to index types.
var boiCurrencyCodes = map[string]linkage.IndexType{
	"USD": linkage.IndexUSD,
	"EUR": linkage.IndexEUR,
}

// BOIClient fetches representative currency rates from the Bank of Israel.
type BOIClient struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewBOIClient creates a client for the given feed URL; empty uses the
// public feed.
func NewBOIClient(url string, log *logrus.Logger) *BOIClient {
	if url == "" {
		url = DefaultBOIURL
	}
	return &BOIClient{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

// FetchRates fetches the current USD and EUR representative rates. The feed
// carries one rate per currency per publication day; the rate is recorded
// against the publication month.
func (c *BOIClient) FetchRates(ctx context.Context) ([]linkage.IndexPoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", linkage.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: BOI returned status %d", linkage.ErrStoreUnavailable, resp.StatusCode)
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to parse BOI XML: %w", err)
	}

	root := doc.SelectElement("CURRENCIES")
	if root == nil {
		return nil, fmt.Errorf("unexpected BOI XML: missing CURRENCIES element")
	}

	month := linkage.MonthOf(time.Now().UTC())
	if el := root.SelectElement("LAST_UPDATE"); el != nil {
		if t, err := time.Parse("2006-01-02", strings.TrimSpace(el.Text())); err == nil {
			month = linkage.MonthOf(t)
		}
	}

	var points []linkage.IndexPoint
	for _, cur := range root.SelectElements("CURRENCY") {
		codeEl := cur.SelectElement("CURRENCYCODE")
		rateEl := cur.SelectElement("RATE")
		if codeEl == nil || rateEl == nil {
			continue
		}
		t, ok := boiCurrencyCodes[strings.TrimSpace(codeEl.Text())]
		if !ok {
			continue
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(rateEl.Text()))
		if err != nil || !rate.IsPositive() {
			c.log.WithField("currency", codeEl.Text()).Warn("skipping malformed BOI rate")
			continue
		}
		points = append(points, linkage.IndexPoint{Type: t, Month: month, Value: rate})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("no usable rates in BOI response")
	}
	c.log.WithFields(logrus.Fields{"rates": len(points), "month": month}).Info("fetched BOI rates")
	return points, nil
}
