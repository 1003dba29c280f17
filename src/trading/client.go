package trading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tradewatch/src/interfaces"
	"tradewatch/src/models"
)

// Compile-time interface check.
var _ interfaces.ITradingService = (*HTTPClient)(nil)

// HTTPClient talks to the real trading execution service over HTTP. The
// endpoint accepts an order as JSON and answers with {order_id, status}.
type HTTPClient struct {
	Endpoint string
	Client   *http.Client
}

// -----------------------------------------------------------------------------

func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// -----------------------------------------------------------------------------

// ExecuteTrade posts the order and decodes the exchange response. Errors
// here surface to the automated-trade engine, which maps them to failed
// execution results.
func (c *HTTPClient) ExecuteTrade(ctx context.Context, req models.MTradeRequest) (models.MTradeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.MTradeResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/orders", bytes.NewReader(body))
	if err != nil {
		return models.MTradeResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return models.MTradeResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.MTradeResponse{}, fmt.Errorf("trading service returned status %d", resp.StatusCode)
	}

	var tradeResp models.MTradeResponse
	if err := json.NewDecoder(resp.Body).Decode(&tradeResp); err != nil {
		return models.MTradeResponse{}, fmt.Errorf("decoding trading response: %w", err)
	}
	return tradeResp, nil
}
