package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRejected indica que a carteira recusou a operação (saldo, carteira inexistente)
var ErrRejected = errors.New("wallet rejected operation")

type reserveRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}

type refRequest struct {
	UserID      string `json:"userId"`
	ExternalRef string `json:"external_ref"`
}

type reserveResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
}

// Client fala com o wallet-service externo (reserve -> commit | refund)
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Reserve bloqueia cents na carteira do usuário; externalRef garante idempotência
func (c *Client) Reserve(ctx context.Context, userID string, cents int64, externalRef string) (string, error) {
	var out reserveResponse
	if err := c.post(ctx, "/wallet/reserve", reserveRequest{UserID: userID, AmountCents: cents, ExternalRef: externalRef}, &out); err != nil {
		return "", err
	}
	return out.ReservationID, nil
}

// Commit efetiva a reserva
func (c *Client) Commit(ctx context.Context, userID, externalRef string) error {
	return c.post(ctx, "/wallet/commit", refRequest{UserID: userID, ExternalRef: externalRef}, nil)
}

// Refund desfaz a reserva devolvendo o saldo
func (c *Client) Refund(ctx context.Context, userID, externalRef string) error {
	return c.post(ctx, "/wallet/refund", refRequest{UserID: userID, ExternalRef: externalRef}, nil)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("wallet %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict || res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s http %d", ErrRejected, path, res.StatusCode)
	}
	if res.StatusCode >= 300 {
		return fmt.Errorf("wallet %s http %d", path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
