// Package storage holds what the snapshot backends share.
package storage

import "github.com/pkg/errors"

// ErrCorruptSnapshot marks a persisted document that exists but cannot be
// parsed. The service recovers from it at startup by falling back to an
// empty store; any other load error aborts startup.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Document names, shared by the file and postgres backends.
const (
	RecordsDoc = "records"
	TokensDoc  = "tokens"
)
