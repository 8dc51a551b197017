package ton

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/set-night/questboard/internal/config"
)

// Client queries jetton balances from a tonapi-compatible indexer. Balances
// come back as integer base-unit strings; all comparisons stay in integer
// space so floating point never touches token amounts.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(config.TokenCheckTimeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &Client{http: c}
}

type jettonBalanceResponse struct {
	Balance string `json:"balance"`
	Jetton  struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Decimals int    `json:"decimals"`
	} `json:"jetton"`
}

// HasJettonBalance reports whether the wallet holds at least minimum of the
// jetton. minimum is given in token units and shifted into base units by the
// jetton's own decimals before comparing.
func (c *Client) HasJettonBalance(ctx context.Context, walletAddress, tokenAddress string, minimum decimal.Decimal) (bool, error) {
	var out jettonBalanceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("address", walletAddress).
		SetPathParam("jetton", tokenAddress).
		SetResult(&out).
		Get("/v2/accounts/{address}/jettons/{jetton}")
	if err != nil {
		return false, fmt.Errorf("tonapi request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		// No jetton wallet for this token: balance is zero.
		return false, nil
	}
	if resp.IsError() {
		return false, fmt.Errorf("tonapi returned %s", resp.Status())
	}

	balance, err := decimal.NewFromString(out.Balance)
	if err != nil {
		return false, fmt.Errorf("parse jetton balance %q: %w", out.Balance, err)
	}

	required := minimum.Shift(int32(out.Jetton.Decimals))
	return balance.GreaterThanOrEqual(required), nil
}
