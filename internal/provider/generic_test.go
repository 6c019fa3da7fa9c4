package provider

import (
	"encoding/json"
	"errors"
	"testing"

	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenericAdapter_Decode_Refund(t *testing.T) {
	body := []byte(`{"player_id":"p7","type":"rollback","amount":25,"round_id":"r3","transaction_id":"inf-9"}`)

	req, err := NewGenericAdapter().Decode(body, "application/json")
	require.NoError(t, err)

	assert.Equal(t, ProviderGeneric, req.ProviderID)
	assert.Equal(t, "p7", req.PlayerID)
	assert.Equal(t, domain.TransactionTypeRefund, req.Type)
	assert.Equal(t, "r3", req.RoundID)
	assert.Equal(t, "inf-9", req.ExternalID)
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(25)))
}

func TestGenericAdapter_Decode_AbsentTypeIsBalanceQuery(t *testing.T) {
	body := []byte(`{"player_id":"p7"}`)

	req, err := NewGenericAdapter().Decode(body, "application/json")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeBalance, req.Type)
	assert.True(t, req.Amount.IsZero())
}

func TestGenericAdapter_Decode_UnknownTypeIsBalanceQuery(t *testing.T) {
	body := []byte(`{"player_id":"p7","type":"tournament","amount":5}`)

	req, err := NewGenericAdapter().Decode(body, "application/json")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeBalance, req.Type)
}

func TestGenericAdapter_Decode_MissingPlayerID(t *testing.T) {
	body := []byte(`{"type":"bet","amount":10}`)

	_, err := NewGenericAdapter().Decode(body, "application/json")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeMalformedRequest, appErr.Code)
}

func TestGenericAdapter_Decode_GarbageBody(t *testing.T) {
	_, err := NewGenericAdapter().Decode([]byte(`{not json`), "application/json")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeMalformedRequest, appErr.Code)
}

func TestGenericAdapter_Encode(t *testing.T) {
	ok := &domain.TransactionResult{
		Status:   domain.TransactionStatusCompleted,
		Balance:  decimal.RequireFromString("10.50"),
		Currency: "USD",
	}

	out, err := NewGenericAdapter().Encode(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"balance":10.50}`, string(out))

	failed := &domain.TransactionResult{
		Status:    domain.TransactionStatusFailed,
		ErrorCode: apperror.CodePlayerNotFound,
		Balance:   decimal.Zero,
		Currency:  "USD",
	}

	out, err = NewGenericAdapter().Encode(failed)
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, apperror.CodePlayerNotFound, resp["error"])
}
