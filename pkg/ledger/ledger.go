// Package ledger persists validated transactions to a single JSON-array
// file. Records are append-only: never mutated or deleted by this system.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lfsouza/finzap/pkg/parser"
)

func init() {
	// The store keeps amounts as JSON numbers, as the original file format.
	decimal.MarshalJSONWithoutQuotes = true
}

// Record is one persisted transaction.
type Record struct {
	Date             string          `json:"date"`
	User             string          `json:"user"`
	Merchant         string          `json:"merchant"`
	Amount           decimal.Decimal `json:"amount"`
	Category         string          `json:"category"`
	ShortDescription string          `json:"shortDescription"`
	SenderID         string          `json:"senderId"`
	RecordedAtUTC    time.Time       `json:"recordedAtUtc"`
}

// NewRecord stamps a validated transaction with its sender and the current
// UTC time.
func NewRecord(tx *parser.Transaction, senderID string) Record {
	return Record{
		Date:             tx.Date,
		User:             tx.User,
		Merchant:         tx.Merchant,
		Amount:           tx.Amount,
		Category:         tx.Category,
		ShortDescription: tx.ShortDescription,
		SenderID:         senderID,
		RecordedAtUTC:    time.Now().UTC(),
	}
}

// WriteError reports a failed append. Persistence is best-effort relative to
// the user-visible reply: callers log this, they do not surface it.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("ledger write failed: %v", e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Ledger serializes all appends through one mutex so concurrent pipeline
// goroutines cannot interleave the read-modify-write and drop records.
type Ledger struct {
	mu   sync.Mutex
	path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Append reads the full store (empty when missing), appends rec and
// rewrites the file atomically via a temp file and rename.
func (l *Ledger) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.readAll()
	if err != nil {
		return &WriteError{Err: err}
	}

	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &WriteError{Err: err}
	}

	tmp := l.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return &WriteError{Err: err}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &WriteError{Err: err}
	}
	if err := os.Rename(tmp, l.path); err != nil {
		os.Remove(tmp)
		return &WriteError{Err: err}
	}

	return nil
}

// All returns a snapshot of the stored records.
func (l *Ledger) All() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAll()
}

func (l *Ledger) readAll() ([]Record, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt ledger %s: %w", l.path, err)
	}
	return records, nil
}
