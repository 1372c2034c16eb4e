package drawing

import (
	"errors"
	"fmt"

	"github.com/chazu/cropper/pkg/entity"
	"github.com/google/uuid"
)

var (
	// ErrTransactionClosed is returned for calls on a committed or rolled
	// back transaction.
	ErrTransactionClosed = errors.New("transaction closed")

	// ErrTransactionOpen is returned by Begin while another transaction
	// on the same drawing is still open.
	ErrTransactionOpen = errors.New("a transaction is already open")
)

// Transaction defers deletions until Commit.
type Transaction struct {
	id      uuid.UUID
	d       *Drawing
	pending []entity.Handle
	marked  map[entity.Handle]bool
	closed  bool
}

// Begin opens a transaction on d.
func (d *Drawing) Begin() (*Transaction, error) {
	if d.open != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionOpen, d.open.id)
	}
	tx := &Transaction{
		id:     uuid.New(),
		d:      d,
		marked: make(map[entity.Handle]bool),
	}
	d.open = tx
	return tx, nil
}

// ID returns the transaction id.
func (tx *Transaction) ID() string {
	return tx.id.String()
}

// RequestDelete marks h for deletion at commit.
func (tx *Transaction) RequestDelete(h entity.Handle) error {
	if tx.closed {
		return ErrTransactionClosed
	}
	if !tx.d.Has(h) {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	if tx.marked[h] {
		return fmt.Errorf("entity %s already marked for deletion", h)
	}
	tx.marked[h] = true
	tx.pending = append(tx.pending, h)
	return nil
}

// Pending returns the handles marked for deletion, in request order.
func (tx *Transaction) Pending() []entity.Handle {
	return append([]entity.Handle(nil), tx.pending...)
}

// Commit applies the pending deletions and closes the transaction.
// It returns the number of entities deleted.
func (tx *Transaction) Commit() (int, error) {
	if tx.closed {
		return 0, ErrTransactionClosed
	}
	for _, h := range tx.pending {
		tx.d.remove(h)
	}
	n := len(tx.pending)
	tx.close()
	return n, nil
}

// Rollback discards the pending deletions and closes the transaction.
func (tx *Transaction) Rollback() error {
	if tx.closed {
		return ErrTransactionClosed
	}
	tx.close()
	return nil
}

func (tx *Transaction) close() {
	tx.closed = true
	tx.pending = nil
	tx.marked = nil
	if tx.d.open == tx {
		tx.d.open = nil
	}
}
