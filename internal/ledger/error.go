package ledger

import "errors"

// ErrMalformed is an error that occurs when the persisted ledger does not
// have the expected structure.
var ErrMalformed = errors.New("malformed ledger")
