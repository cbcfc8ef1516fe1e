package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbasket/greenbasket/internal/payment"
)

func TestPaystackGateway_Initialize_ScalesAmountToMinorUnits(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code":       "abc123",
				"reference":         "ref_42",
			},
		})
	}))
	defer srv.Close()

	gw := payment.NewPaystackGateway("sk_test_secret", srv.URL)
	result, err := gw.Initialize(context.Background(), decimal.RequireFromString("1000.50"), "ada@example.com", map[string]any{"user_id": int64(42)})

	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", result.AuthorizationURL)
	assert.Equal(t, "ref_42", result.Reference)
	// 1000.50 naira = 100050 kobo.
	assert.Equal(t, "100050", gotBody["amount"])
	assert.Equal(t, "ada@example.com", gotBody["email"])
}

func TestPaystackGateway_Verify_NormalizesKoboToMajorUnits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ref_42", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]any{
				"status":    "success",
				"amount":    95000,
				"reference": "ref_42",
				"currency":  "NGN",
			},
		})
	}))
	defer srv.Close()

	gw := payment.NewPaystackGateway("sk_test_secret", srv.URL)
	result, err := gw.Verify(context.Background(), "ref_42")

	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.True(t, result.Amount.Equal(decimal.RequireFromString("950.00")), "got %s", result.Amount)
	assert.Equal(t, "ref_42", result.Reference)
}

func TestPaystackGateway_Verify_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Invalid key",
		})
	}))
	defer srv.Close()

	gw := payment.NewPaystackGateway("bad_key", srv.URL)
	result, err := gw.Verify(context.Background(), "ref_42")

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, payment.ErrGateway))
}
