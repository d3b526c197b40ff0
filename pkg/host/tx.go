package host

import (
	"errors"
	"fmt"
)

// Transaction is an open unit of work against a document.
type Transaction interface {
	Commit() error
	Rollback() error
}

// Transactor starts transactions.
type Transactor interface {
	Begin(name string) (Transaction, error)
}

// WithTransaction runs fn inside a transaction named name. The transaction
// is committed when fn returns nil and rolled back when fn returns an error
// or panics; a panic is re-raised after the rollback. A failed commit is
// returned as is and not followed by a rollback.
func WithTransaction(t Transactor, name string, fn func() error) (err error) {
	tx, err := t.Begin(name)
	if err != nil {
		return fmt.Errorf("begin %q: %w", name, err)
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback %q: %w", name, rbErr))
		}
	}()

	if err = fn(); err != nil {
		return err
	}
	finished = true
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %q: %w", name, err)
	}
	return nil
}
