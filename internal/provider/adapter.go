// Package provider implements the per-provider callback adapters: pure,
// stateless translation between each game provider's wire format and the
// canonical transaction model. The transaction processor never sees a
// provider-specific shape.
package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"seamless-wallet-gateway/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Adapter translates one provider's callback payloads and responses.
// Implementations are pure functions over request/response data.
type Adapter interface {
	// ProviderID is the canonical identifier recorded on transactions.
	ProviderID() string
	// Decode parses a raw callback body into the canonical request.
	Decode(body []byte, contentType string) (*domain.TransactionRequest, error)
	// Encode maps a canonical result into the provider's response envelope.
	Encode(result *domain.TransactionResult) ([]byte, error)
}

// payload is a flattened view over a decoded callback body. Both JSON objects
// and form-encoded bodies normalize to string values so adapters can share
// field extraction.
type payload map[string]string

// parsePayload decodes a JSON or form-encoded callback body. Providers are
// inconsistent about Content-Type, so an empty or unknown type falls back to
// sniffing: bodies starting with '{' parse as JSON.
func parsePayload(body []byte, contentType string) (payload, error) {
	trimmed := bytes.TrimSpace(body)
	isForm := strings.Contains(contentType, "application/x-www-form-urlencoded")
	if !isForm && !strings.Contains(contentType, "json") {
		isForm = len(trimmed) > 0 && trimmed[0] != '{'
	}

	if isForm {
		values, err := url.ParseQuery(string(trimmed))
		if err != nil {
			return nil, fmt.Errorf("parse form body: %w", err)
		}
		p := make(payload, len(values))
		for k := range values {
			p[strings.ToLower(k)] = values.Get(k)
		}
		return p, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json body: %w", err)
	}
	p := make(payload, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			p[strings.ToLower(k)] = val
		case json.Number:
			p[strings.ToLower(k)] = val.String()
		case bool:
			p[strings.ToLower(k)] = fmt.Sprintf("%t", val)
		case nil:
			// omitted
		default:
			// nested structures are not part of any supported callback
		}
	}
	return p, nil
}

// str returns the first non-empty value among the given field aliases.
// Lookup is case-insensitive (keys are lowercased during parsing).
func (p payload) str(aliases ...string) string {
	for _, key := range aliases {
		if v := p[strings.ToLower(key)]; v != "" {
			return v
		}
	}
	return ""
}

// amount parses the first present amount field. A missing amount is zero
// (balance queries carry none); an unparseable one is an error.
func (p payload) amount(aliases ...string) (decimal.Decimal, error) {
	raw := p.str(aliases...)
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return amount, nil
}

// currencyOrDefault normalizes the currency field.
func (p payload) currencyOrDefault(aliases ...string) string {
	if c := p.str(aliases...); c != "" {
		return strings.ToUpper(c)
	}
	return domain.DefaultCurrency
}
