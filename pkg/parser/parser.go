// Package parser turns the raw model response into a validated transaction.
// It is independent of which provider produced the text.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Categories is the fixed expense classification set. Any other value is
// rejected, never coerced.
var Categories = []string{"Alimentação", "Transporte", "Moradia", "Lazer", "Saúde", "Outros"}

// CategoryEmoji maps each category to its confirmation-reply emoji. The 💰
// fallback is kept from the original bot although validation makes it
// unreachable for persisted records.
var CategoryEmoji = map[string]string{
	"Alimentação": "🍽️",
	"Transporte":  "🚗",
	"Moradia":     "🏠",
	"Lazer":       "🎮",
	"Saúde":       "💊",
	"Outros":      "📦",
}

// Transaction is one validated receipt extraction.
type Transaction struct {
	Date             string
	User             string
	Merchant         string
	Amount           decimal.Decimal
	Category         string
	ShortDescription string
}

// ParseError reports text that could not be decoded as a single JSON
// object. Raw carries the offending text for diagnostics; it is never shown
// to the end user.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model response is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type ValidationKind int

const (
	MissingField ValidationKind = iota
	InvalidAmount
	InvalidCategory
)

type ValidationError struct {
	Kind  ValidationKind
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case InvalidAmount:
		return "amount must be a positive number"
	case InvalidCategory:
		return fmt.Sprintf("invalid category %q", e.Value)
	default:
		return fmt.Sprintf("missing required field %q", e.Field)
	}
}

// UserMessage renders the failure reason shown to the sender, matching the
// original bot's copy.
func (e *ValidationError) UserMessage() string {
	switch e.Kind {
	case InvalidAmount:
		return "Valor deve ser um número positivo"
	case InvalidCategory:
		return fmt.Sprintf("Categoria inválida: %s", e.Value)
	default:
		return fmt.Sprintf("Campo obrigatório ausente: %s", e.Field)
	}
}

// fencedBlock captures the innermost content of an optionally labeled
// markdown code fence.
var fencedBlock = regexp.MustCompile("```(?:json)?\\s*((?s).*?)```")

// requiredFields in report order; the first missing one is named in the
// ValidationError.
var requiredFields = []string{"data", "usuario", "estabelecimento", "valor", "categoria", "descricao_curta"}

// Parse extracts the JSON payload from raw (stripping a code fence when
// present), decodes it and validates the six-field schema. Failures are
// *ParseError or *ValidationError.
func Parse(raw string) (*Transaction, error) {
	text := raw
	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, &ParseError{Raw: text, Err: err}
	}

	for _, field := range requiredFields {
		if _, ok := obj[field]; !ok {
			return nil, &ValidationError{Kind: MissingField, Field: field}
		}
	}

	// decimal accepts quoted numbers, but the schema requires a JSON
	// number, so a leading quote is already invalid.
	rawAmount := obj["valor"]
	var amount decimal.Decimal
	if len(rawAmount) == 0 || rawAmount[0] == '"' {
		return nil, &ValidationError{Kind: InvalidAmount, Field: "valor", Value: string(rawAmount)}
	}
	if err := json.Unmarshal(rawAmount, &amount); err != nil {
		return nil, &ValidationError{Kind: InvalidAmount, Field: "valor", Value: string(rawAmount)}
	}
	if amount.Sign() <= 0 {
		return nil, &ValidationError{Kind: InvalidAmount, Field: "valor", Value: amount.String()}
	}

	var category string
	if err := json.Unmarshal(obj["categoria"], &category); err != nil {
		return nil, &ValidationError{Kind: InvalidCategory, Field: "categoria", Value: string(obj["categoria"])}
	}
	if !validCategory(category) {
		return nil, &ValidationError{Kind: InvalidCategory, Field: "categoria", Value: category}
	}

	tx := &Transaction{Amount: amount, Category: category}
	for field, dst := range map[string]*string{
		"data":            &tx.Date,
		"usuario":         &tx.User,
		"estabelecimento": &tx.Merchant,
		"descricao_curta": &tx.ShortDescription,
	} {
		if err := json.Unmarshal(obj[field], dst); err != nil {
			return nil, &ValidationError{Kind: MissingField, Field: field}
		}
	}

	return tx, nil
}

func validCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Emoji returns the reply emoji for a category.
func Emoji(category string) string {
	if e, ok := CategoryEmoji[category]; ok {
		return e
	}
	return "💰"
}
