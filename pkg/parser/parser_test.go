package parser

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

const validJSON = `{"data":"01/03/2024","usuario":"Ana","estabelecimento":"Mercado X","valor":45.90,"categoria":"Alimentação","descricao_curta":"compras supermercado"}`

func TestParse_BareJSON(t *testing.T) {
	tx, err := Parse(validJSON)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if tx.Merchant != "Mercado X" {
		t.Errorf("Merchant = %q, want %q", tx.Merchant, "Mercado X")
	}
	if tx.User != "Ana" {
		t.Errorf("User = %q, want %q", tx.User, "Ana")
	}
	if tx.Date != "01/03/2024" {
		t.Errorf("Date = %q, want %q", tx.Date, "01/03/2024")
	}
	if !tx.Amount.Equal(decimal.RequireFromString("45.90")) {
		t.Errorf("Amount = %s, want 45.90", tx.Amount)
	}
	if tx.Category != "Alimentação" {
		t.Errorf("Category = %q, want %q", tx.Category, "Alimentação")
	}
	if tx.ShortDescription != "compras supermercado" {
		t.Errorf("ShortDescription = %q", tx.ShortDescription)
	}
}

func TestParse_FencedJSON(t *testing.T) {
	for name, raw := range map[string]string{
		"labeled":   "```json\n" + validJSON + "\n```",
		"unlabeled": "```\n" + validJSON + "\n```",
		"prose":     "Aqui está o resultado:\n```json\n" + validJSON + "\n```\nEspero ter ajudado!",
	} {
		t.Run(name, func(t *testing.T) {
			tx, err := Parse(raw)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if tx.Merchant != "Mercado X" {
				t.Errorf("Merchant = %q, want %q", tx.Merchant, "Mercado X")
			}
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	first, err := Parse(validJSON)
	if err != nil {
		t.Fatalf("first Parse() error: %v", err)
	}
	second, err := Parse("```json\n" + validJSON + "\n```")
	if err != nil {
		t.Fatalf("second Parse() error: %v", err)
	}
	if !first.Amount.Equal(second.Amount) {
		t.Errorf("Amount differs: %s vs %s", first.Amount, second.Amount)
	}
	first.Amount, second.Amount = decimal.Decimal{}, decimal.Decimal{}
	if *first != *second {
		t.Errorf("fenced and bare parses differ: %+v vs %+v", first, second)
	}
}

func TestParse_NotJSON(t *testing.T) {
	_, err := Parse("Desculpe, não consegui ler o comprovante.")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseErr.Raw == "" {
		t.Error("ParseError should carry the offending text")
	}
}

func TestParse_InvalidAmount(t *testing.T) {
	for name, valor := range map[string]string{
		"zero":     `0`,
		"negative": `-12.50`,
		"string":   `"45.90"`,
		"boolean":  `true`,
		"null":     `null`,
	} {
		t.Run(name, func(t *testing.T) {
			raw := `{"data":"01/03/2024","usuario":"Ana","estabelecimento":"X","valor":` + valor + `,"categoria":"Outros","descricao_curta":"x"}`
			_, err := Parse(raw)
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if valErr.Kind != InvalidAmount {
				t.Errorf("Kind = %v, want InvalidAmount", valErr.Kind)
			}
		})
	}
}

func TestParse_InvalidCategory(t *testing.T) {
	for name, categoria := range map[string]string{
		"unknown":   `"Educação"`,
		"lowercase": `"alimentação"`,
		"number":    `42`,
	} {
		t.Run(name, func(t *testing.T) {
			raw := `{"data":"01/03/2024","usuario":"Ana","estabelecimento":"X","valor":10,"categoria":` + categoria + `,"descricao_curta":"x"}`
			_, err := Parse(raw)
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if valErr.Kind != InvalidCategory {
				t.Errorf("Kind = %v, want InvalidCategory", valErr.Kind)
			}
		})
	}
}

func TestParse_MissingFields(t *testing.T) {
	for _, field := range []string{"data", "usuario", "estabelecimento", "valor", "categoria", "descricao_curta"} {
		t.Run(field, func(t *testing.T) {
			full := map[string]string{
				"data":            `"01/03/2024"`,
				"usuario":         `"Ana"`,
				"estabelecimento": `"X"`,
				"valor":           `10`,
				"categoria":       `"Outros"`,
				"descricao_curta": `"x"`,
			}
			delete(full, field)
			raw := "{"
			for k, v := range full {
				raw += `"` + k + `":` + v + `,`
			}
			raw = raw[:len(raw)-1] + "}"

			_, err := Parse(raw)
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if valErr.Kind != MissingField {
				t.Errorf("Kind = %v, want MissingField", valErr.Kind)
			}
			if valErr.Field != field {
				t.Errorf("Field = %q, want %q", valErr.Field, field)
			}
		})
	}
}

func TestParse_AllCategoriesAccepted(t *testing.T) {
	for _, cat := range Categories {
		raw := `{"data":"01/03/2024","usuario":"Ana","estabelecimento":"X","valor":10,"categoria":"` + cat + `","descricao_curta":"x"}`
		if _, err := Parse(raw); err != nil {
			t.Errorf("category %q rejected: %v", cat, err)
		}
	}
}

func TestEmoji(t *testing.T) {
	if got := Emoji("Alimentação"); got != "🍽️" {
		t.Errorf("Emoji(Alimentação) = %q", got)
	}
	if got := Emoji("inexistente"); got != "💰" {
		t.Errorf("Emoji fallback = %q, want 💰", got)
	}
}
