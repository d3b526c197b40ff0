package memdoc

import (
	"errors"

	"github.com/chazu/wallhole/pkg/host"
	"github.com/chazu/wallhole/pkg/model"
)

var (
	ErrTransactionOpen   = errors.New("a transaction is already open")
	ErrTransactionClosed = errors.New("transaction already finished")
	ErrNoTransaction     = errors.New("document modification outside of a transaction")
)

// transaction stages changes until commit. Rollback discards staged
// instances and reverts symbol activations.
type transaction struct {
	doc       *Document
	name      string
	staged    []*Instance
	activated []*model.FamilySymbol
	done      bool
}

var _ host.Transaction = (*transaction)(nil)

// Begin implements host.Transactor. Only one transaction may be open.
func (d *Document) Begin(name string) (host.Transaction, error) {
	if d.tx != nil {
		return nil, ErrTransactionOpen
	}
	d.tx = &transaction{doc: d, name: name}
	return d.tx, nil
}

// InTransaction reports whether a transaction is open.
func (d *Document) InTransaction() bool {
	return d.tx != nil
}

// Commit makes staged changes visible.
func (t *transaction) Commit() error {
	if t.done {
		return ErrTransactionClosed
	}
	t.done = true
	t.doc.instances = append(t.doc.instances, t.staged...)
	t.doc.tx = nil
	return nil
}

// Rollback discards staged changes.
func (t *transaction) Rollback() error {
	if t.done {
		return ErrTransactionClosed
	}
	t.done = true
	for _, s := range t.activated {
		s.Active = false
	}
	t.staged = nil
	t.doc.tx = nil
	return nil
}

// ActivateSymbol implements host.Document.
func (d *Document) ActivateSymbol(id model.ElementID) error {
	if d.tx == nil {
		return ErrNoTransaction
	}
	s, ok := d.symbol(id)
	if !ok {
		return ErrElementNotFound
	}
	if !s.Active {
		s.Active = true
		d.tx.activated = append(d.tx.activated, s)
	}
	return nil
}
