package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RESTFeed reads spot prices from a Binance-compatible ticker endpoint.
type RESTFeed struct {
	baseURL    string
	httpClient *http.Client

	// symbolMap translates ledger assets to feed symbols, e.g.
	// BTCUSD -> BTCUSDT. Unmapped assets pass through unchanged.
	symbolMap map[string]string
}

// NewRESTFeed builds a feed against baseURL (empty means the Binance spot
// API).
func NewRESTFeed(baseURL string, symbolMap map[string]string) *RESTFeed {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	if symbolMap == nil {
		symbolMap = map[string]string{}
	}
	return &RESTFeed{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		symbolMap:  symbolMap,
	}
}

// Quote returns the latest traded price for the asset.
func (f *RESTFeed) Quote(ctx context.Context, asset string) (float64, error) {
	symbol := asset
	if mapped, ok := f.symbolMap[asset]; ok {
		symbol = mapped
	}

	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", f.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ticker %s: status %d", symbol, resp.StatusCode)
	}

	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("ticker %s: bad price %q", symbol, ticker.Price)
	}
	return price, nil
}
