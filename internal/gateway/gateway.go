// Package gateway implements a client for the external payment gateway's
// order API. An order must be registered with the gateway before the
// customer can pay for it; the returned gateway order identifier is what
// the payment confirmation flow is keyed on.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

const defaultTimeout = 10 * time.Second

// Config carries the gateway endpoint and API credentials.
type Config struct {
	BaseURL   string `yaml:"base_url" env:"BASE_URL"`
	KeyID     string `yaml:"key_id" env:"KEY_ID"`
	KeySecret string `yaml:"key_secret" env:"KEY_SECRET"`
}

// Client registers orders with the payment gateway over HTTP.
type Client struct {
	http      *http.Client
	baseURL   string
	keyID     string
	keySecret string
}

// NewClient creates a gateway client from the given config.
func NewClient(cfg Config) *Client {
	return &Client{
		http:      &http.Client{Timeout: defaultTimeout},
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
	}
}

// CreateRemoteOrder registers an order with the gateway and returns the
// gateway's order identifier. Amount is in the currency's minor units.
func (c *Client) CreateRemoteOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { e.Int64(amountMinorUnits) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(currency) })
		e.Field("receipt", func(e *jx.Encoder) { e.Str(receipt) })
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(e.Bytes()))
	if err != nil {
		return "", errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "call gateway")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", errors.Errorf("gateway returned status %d", resp.StatusCode)
	}

	id, err := decodeOrderID(body)
	if err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if id == "" {
		return "", errors.New("gateway response missing order id")
	}
	return id, nil
}

func decodeOrderID(body []byte) (string, error) {
	var id string
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "id" {
			v, err := d.Str()
			if err != nil {
				return err
			}
			id = v
			return nil
		}
		return d.Skip()
	}); err != nil {
		return "", err
	}
	return id, nil
}
