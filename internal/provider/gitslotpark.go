package provider

import (
	"encoding/json"
	"strings"

	"seamless-wallet-gateway/internal/core/domain"
	"seamless-wallet-gateway/pkg/apperror"
)

// ProviderGitSlotPark identifies GitSlotPark-style aggregators.
const ProviderGitSlotPark = "gitslotpark"

// GitSlotParkAdapter speaks the GitSlotPark dialect: an `operation` field with
// bet/win/refund/balance values and a status-string response envelope.
type GitSlotParkAdapter struct{}

// NewGitSlotParkAdapter creates a GitSlotParkAdapter.
func NewGitSlotParkAdapter() *GitSlotParkAdapter {
	return &GitSlotParkAdapter{}
}

// ProviderID implements Adapter.
func (a *GitSlotParkAdapter) ProviderID() string { return ProviderGitSlotPark }

// Decode implements Adapter.
func (a *GitSlotParkAdapter) Decode(body []byte, contentType string) (*domain.TransactionRequest, error) {
	p, err := parsePayload(body, contentType)
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeMalformedRequest, "unreadable callback body", 400, err)
	}

	playerID := p.str("usercode", "userid", "playerid")
	if playerID == "" {
		return nil, apperror.ErrMalformedRequest("missing userCode")
	}

	var txType domain.TransactionType
	switch strings.ToLower(p.str("operation")) {
	case "bet":
		txType = domain.TransactionTypeBet
	case "win":
		txType = domain.TransactionTypeWin
	case "refund":
		txType = domain.TransactionTypeRefund
	default:
		// Unknown and missing operations read as a balance query.
		txType = domain.TransactionTypeBalance
	}

	amount, err := p.amount("amount")
	if err != nil {
		return nil, apperror.Wrap(apperror.CodeInvalidAmount, "unparseable amount", 400, err)
	}

	return &domain.TransactionRequest{
		ProviderID: ProviderGitSlotPark,
		ExternalID: p.str("transactionid", "txid"),
		PlayerID:   playerID,
		GameID:     p.str("gamecode", "gameid"),
		RoundID:    p.str("roundid", "round"),
		Type:       txType,
		Amount:     amount,
		Currency:   p.currencyOrDefault("currency"),
	}, nil
}

type gitSlotParkResponse struct {
	Status   string      `json:"status"`
	Balance  json.Number `json:"balance"`
	Currency string      `json:"currency"`
	Message  string      `json:"message"`
}

// Encode implements Adapter.
func (a *GitSlotParkAdapter) Encode(result *domain.TransactionResult) ([]byte, error) {
	resp := gitSlotParkResponse{
		Status:   "success",
		Balance:  json.Number(result.Balance.StringFixed(2)),
		Currency: result.Currency,
	}
	if !result.OK() {
		resp.Status = "error"
		resp.Message = gitSlotParkMessage(result.ErrorCode)
	}
	return json.Marshal(resp)
}

func gitSlotParkMessage(code string) string {
	switch code {
	case apperror.CodeInsufficientFunds:
		return "Insufficient balance"
	case apperror.CodeOriginalTxNotFound:
		return "Original transaction not found"
	case apperror.CodePlayerNotFound:
		return "User not found"
	case apperror.CodeInvalidAmount:
		return "Invalid amount"
	case apperror.CodeInvalidTransactionType:
		return "Invalid operation"
	case apperror.CodeMalformedRequest:
		return "Malformed request"
	default:
		return "Internal error"
	}
}
