package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lfsouza/finzap/pkg/parser"
)

func testRecord(merchant string) Record {
	return Record{
		Date:             "01/03/2024",
		User:             "Ana",
		Merchant:         merchant,
		Amount:           decimal.RequireFromString("45.90"),
		Category:         "Alimentação",
		ShortDescription: "compras supermercado",
		SenderID:         "5511999999999@s.whatsapp.net",
		RecordedAtUTC:    time.Now().UTC(),
	}
}

func TestAppend_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transacoes.json")
	l := NewLedger(path)

	if err := l.Append(testRecord("Mercado X")); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	records, err := l.All()
	if err != nil {
		t.Fatalf("All() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Merchant != "Mercado X" {
		t.Errorf("Merchant = %q", records[0].Merchant)
	}
}

func TestAppend_PreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transacoes.json")
	l := NewLedger(path)

	for i := 0; i < 5; i++ {
		if err := l.Append(testRecord(fmt.Sprintf("loja-%d", i))); err != nil {
			t.Fatalf("Append(%d) error: %v", i, err)
		}
	}

	records, err := l.All()
	if err != nil {
		t.Fatalf("All() error: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want 5", len(records))
	}
	for i, rec := range records {
		if want := fmt.Sprintf("loja-%d", i); rec.Merchant != want {
			t.Errorf("records[%d].Merchant = %q, want %q", i, rec.Merchant, want)
		}
	}
}

func TestAppend_ConcurrentLosesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transacoes.json")
	l := NewLedger(path)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := l.Append(testRecord(fmt.Sprintf("loja-%d", i))); err != nil {
				t.Errorf("Append(%d) error: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	records, err := l.All()
	if err != nil {
		t.Fatalf("All() error: %v", err)
	}
	if len(records) != n {
		t.Errorf("got %d records, want %d", len(records), n)
	}
}

func TestAppend_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transacoes.json")
	l := NewLedger(path)

	if err := l.Append(testRecord("Mercado X")); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("store is not a JSON array: %v", err)
	}
	for _, key := range []string{"date", "user", "merchant", "amount", "category", "shortDescription", "senderId", "recordedAtUtc"} {
		if _, ok := raw[0][key]; !ok {
			t.Errorf("record is missing key %q", key)
		}
	}
	// Amounts are stored as JSON numbers, not strings.
	if amt := string(raw[0]["amount"]); strings.HasPrefix(amt, `"`) {
		t.Errorf("amount stored quoted: %s", amt)
	}
}

func TestAll_MissingFile(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "transacoes.json"))

	records, err := l.All()
	if err != nil {
		t.Fatalf("All() error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from missing file, want 0", len(records))
	}
}

func TestAll_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transacoes.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLedger(path)
	if _, err := l.All(); err == nil {
		t.Error("expected error for corrupt store")
	}
}

func TestNewRecord(t *testing.T) {
	tx := &parser.Transaction{
		Date:             "01/03/2024",
		User:             "Ana",
		Merchant:         "Mercado X",
		Amount:           decimal.RequireFromString("45.90"),
		Category:         "Alimentação",
		ShortDescription: "compras supermercado",
	}

	before := time.Now().UTC()
	rec := NewRecord(tx, "5511999999999@s.whatsapp.net")
	after := time.Now().UTC()

	if rec.SenderID != "5511999999999@s.whatsapp.net" {
		t.Errorf("SenderID = %q", rec.SenderID)
	}
	if rec.RecordedAtUTC.Before(before) || rec.RecordedAtUTC.After(after) {
		t.Errorf("RecordedAtUTC = %v outside [%v, %v]", rec.RecordedAtUTC, before, after)
	}
	if !rec.Amount.Equal(tx.Amount) {
		t.Errorf("Amount = %s, want %s", rec.Amount, tx.Amount)
	}
}
