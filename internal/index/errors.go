package index

import "fmt"

// MalformedSymbolError rejects one extraction entry (inverted location bounds,
// empty name, unknown kind). It is entry-scoped: the resolver logs it and
// skips the entry, never aborting the rest of the file.
type MalformedSymbolError struct {
	Entry string // short description of the offending entry
	Err   error
}

func (e *MalformedSymbolError) Error() string {
	return fmt.Sprintf("malformed symbol entry (%s): %v", e.Entry, e.Err)
}

func (e *MalformedSymbolError) Unwrap() error { return e.Err }

// InvalidPatternError reports a malformed regex in a query. Request-scoped:
// the query fails, the index is untouched.
type InvalidPatternError struct {
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }
