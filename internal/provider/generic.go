package provider

import (
	"encoding/json"
	"strings"

	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/pkg/apperror"
)

// ProviderGeneric identifies Infin-style aggregators and is the fallback for
// unrecognized callback paths.
const ProviderGeneric = "generic"

// GenericAdapter speaks the snake_case dialect shared by Infin-style
// aggregators: explicit bet/win/refund/balance type names and a boolean
// success envelope. It is also the fallback when no known provider token
// appears in the callback path.
type GenericAdapter struct{}

// NewGenericAdapter creates a GenericAdapter.
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// ProviderID implements Adapter.
func (a *GenericAdapter) ProviderID() string { return ProviderGeneric }

// Decode implements Adapter.
func (a *GenericAdapter) Decode(body []byte, contentType string) (*domain.TransactionRequest, error) {
	p, err := parsePayload(body, contentType)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeMalformedRequest, "unreadable callback body", 400, err)
	}

	playerID := p.str("player_id", "playerid", "player")
	if playerID == "" {
		return nil, apperror.ErrMalformedRequest("missing player_id")
	}

	var txType domain.TransactionType
	switch strings.ToLower(p.str("type")) {
	case "bet":
		txType = domain.TransactionTypeBet
	case "win":
		txType = domain.TransactionTypeWin
	case "refund", "rollback":
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
		ProviderID: ProviderGeneric,
		ExternalID: p.str("transaction_id", "transactionid", "reference"),
		PlayerID:   playerID,
		GameID:     p.str("game_id", "gameid"),
		RoundID:    p.str("round_id", "roundid"),
		Type:       txType,
		Amount:     amount,
		Currency:   p.currencyOrDefault("currency"),
	}, nil
}

type genericResponse struct {
	Success bool        `json:"success"`
	Balance json.Number `json:"balance"`
	Error   string      `json:"error,omitempty"`
}

// Encode implements Adapter. The error field carries the canonical code; the
// generic dialect's consumers match on codes, not prose.
func (a *GenericAdapter) Encode(result *domain.TransactionResult) ([]byte, error) {
	resp := genericResponse{
		Success: result.OK(),
		Balance: json.Number(result.Balance.StringFixed(2)),
	}
	if !result.OK() {
		resp.Error = result.ErrorCode
	}
	return json.Marshal(resp)
}
