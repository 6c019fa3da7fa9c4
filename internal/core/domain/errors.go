package domain

import "errors"

// ErrDuplicateTransaction is returned by the storage layer when the unique
// constraint on (provider_id, external_id) rejects a completed transaction
// insert. It signals a concurrent duplicate delivery that lost the race.
var ErrDuplicateTransaction = errors.New("duplicate transaction")
