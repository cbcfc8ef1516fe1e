package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrGateway marks upstream payment provider failures. They are
// non-retriable from the core's point of view; the caller re-initializes.
var ErrGateway = errors.New("payment gateway error")

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the gateway's final word on one payment attempt. Amount
// is already normalized to major currency units at this boundary.
type VerifyResult struct {
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

func (v *VerifyResult) Succeeded() bool {
	return v.Status == "success"
}

type Gateway interface {
	Initialize(ctx context.Context, amount decimal.Decimal, email string, metadata map[string]any) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}

// paystackGateway talks to the Paystack REST API. Paystack carries
// amounts in minor units (kobo); the conversion happens here and nowhere
// else.
type paystackGateway struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewPaystackGateway(secretKey, baseURL string) Gateway {
	return &paystackGateway{
		secretKey: secretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Currency  string `json:"currency"`
}

func (g *paystackGateway) Initialize(ctx context.Context, amount decimal.Decimal, email string, metadata map[string]any) (*InitializeResult, error) {
	payload := map[string]any{
		"amount":   amount.Shift(2).Round(0).String(),
		"email":    email,
		"metadata": metadata,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to marshal initialize payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")

	envelope, err := g.do(req)
	if err != nil {
		return nil, err
	}

	var data paystackInitializeData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("gateway: failed to decode initialize response: %w", err)
	}

	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

func (g *paystackGateway) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	envelope, err := g.do(req)
	if err != nil {
		return nil, err
	}

	var data paystackVerifyData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("gateway: failed to decode verify response: %w", err)
	}

	// Kobo to naira.
	amount := decimal.NewFromInt(data.Amount).Shift(-2)

	return &VerifyResult{
		Status:    data.Status,
		Amount:    amount,
		Reference: data.Reference,
		Raw:       envelope.Data,
	}, nil
}

func (g *paystackGateway) do(req *http.Request) (*paystackEnvelope, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	var envelope paystackEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrGateway, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Status {
		return nil, fmt.Errorf("%w: %s (http %d)", ErrGateway, envelope.Message, resp.StatusCode)
	}

	return &envelope, nil
}
