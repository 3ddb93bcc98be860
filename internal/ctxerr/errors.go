// Package ctxerr defines the error taxonomy shared across the context
// engine's components, so callers can branch on failure kind with
// errors.Is/errors.As instead of matching message strings.
package ctxerr

import "fmt"

// Kind classifies a context engine error.
type Kind int

const (
	// KindNotFound: the referenced session, message, or file reference
	// does not exist.
	KindNotFound Kind = iota
	// KindInvalidArgument: caller-supplied input violates a precondition
	// (e.g. an unrecognized update field, a negative token budget).
	KindInvalidArgument
	// KindMigrationFailed: schema migration could not complete; the store
	// was rolled back to its pre-migration backup.
	KindMigrationFailed
	// KindStoreIO: the underlying database could not be read or written.
	KindStoreIO
	// KindExternalUnavailable: a dependency outside the process (the
	// embedding service, an LLM summarizer) did not respond.
	KindExternalUnavailable
	// KindInvariantViolation: an internal invariant was about to be
	// broken (e.g. a compaction level ordering would be skipped).
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindMigrationFailed:
		return "migration_failed"
	case KindStoreIO:
		return "store_io"
	case KindExternalUnavailable:
		return "external_unavailable"
	case KindInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Error is a kinded, wrappable error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ctxerr.NotFound) style matching against a
// sentinel carrying only a Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Sentinels for errors.Is comparisons, e.g. errors.Is(err, ctxerr.NotFound).
var (
	NotFound            = &Error{Kind: KindNotFound}
	InvalidArgument     = &Error{Kind: KindInvalidArgument}
	MigrationFailed     = &Error{Kind: KindMigrationFailed}
	StoreIO             = &Error{Kind: KindStoreIO}
	ExternalUnavailable = &Error{Kind: KindExternalUnavailable}
	InvariantViolation  = &Error{Kind: KindInvariantViolation}
)
