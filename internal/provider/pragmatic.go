package provider

import (
	"encoding/json"
	"strings"

	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/pkg/apperror"
)

// ProviderPragmatic identifies Pragmatic-Play-style aggregators.
const ProviderPragmatic = "pragmatic"

// PragmaticAdapter speaks the Pragmatic Play seamless dialect: `playerid`,
// `amount`, `type` with debit/credit/rollback vocabulary, and an
// errorcode-based response envelope where "0" means success. Callbacks arrive
// as JSON or form-encoded.
type PragmaticAdapter struct{}

// NewPragmaticAdapter creates a PragmaticAdapter.
func NewPragmaticAdapter() *PragmaticAdapter {
	return &PragmaticAdapter{}
}

// ProviderID implements Adapter.
func (a *PragmaticAdapter) ProviderID() string { return ProviderPragmatic }

// Decode implements Adapter.
func (a *PragmaticAdapter) Decode(body []byte, contentType string) (*domain.TransactionRequest, error) {
	p, err := parsePayload(body, contentType)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeMalformedRequest, "unreadable callback body", 400, err)
	}

	playerID := p.str("playerid", "playerId", "userid")
	if playerID == "" {
		return nil, apperror.ErrMalformedRequest("missing playerid")
	}

	var txType domain.TransactionType
	switch strings.ToLower(p.str("type")) {
	case "debit":
		txType = domain.TransactionTypeBet
	case "credit":
		txType = domain.TransactionTypeWin
	case "rollback":
		txType = domain.TransactionTypeRefund
	default:
		// Unknown and missing type values read as a balance query.
		txType = domain.TransactionTypeBalance
	}

	amount, err := p.amount("amount")
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInvalidAmount, "unparseable amount", 400, err)
	}

	return &domain.TransactionRequest{
		ProviderID: ProviderPragmatic,
		ExternalID: p.str("reference", "transactionid"),
		PlayerID:   playerID,
		GameID:     p.str("gameid", "gamecode"),
		RoundID:    p.str("roundid", "round"),
		Type:       txType,
		Amount:     amount,
		Currency:   p.currencyOrDefault("currency"),
	}, nil
}

type pragmaticResponse struct {
	ErrorCode string      `json:"errorcode"`
	Balance   json.Number `json:"balance"`
	Error     string      `json:"error,omitempty"`
}

// Encode implements Adapter. Pragmatic expects errorcode "0" on success and
// "1" with an error message otherwise; the current balance is always echoed.
func (a *PragmaticAdapter) Encode(result *domain.TransactionResult) ([]byte, error) {
	resp := pragmaticResponse{
		ErrorCode: "0",
		Balance:   json.Number(result.Balance.StringFixed(2)),
	}
	if !result.OK() {
		resp.ErrorCode = "1"
		resp.Error = pragmaticErrorMessage(result.ErrorCode)
	}
	return json.Marshal(resp)
}

func pragmaticErrorMessage(code string) string {
	switch code {
	case apperror.CodeInsufficientFunds:
		return "insufficient funds"
	case apperror.CodeOriginalTxNotFound:
		return "transaction not found"
	case apperror.CodePlayerNotFound:
		return "player not found"
	case apperror.CodeInvalidAmount:
		return "invalid amount"
	case apperror.CodeInvalidTransactionType:
		return "invalid transaction type"
	case apperror.CodeMalformedRequest:
		return "malformed request"
	default:
		return "internal error"
	}
}
