package syncer

import "errors"

// Kind classifies a failure surfaced to the presentation layer.
type Kind int

const (
	// KindRemote wraps any failure reported by the store, auth provider or
	// blob storage.
	KindRemote Kind = iota
	// KindValidation is bad input caught before any remote call.
	KindValidation
	// KindConflict is a duplicate number at sign-up or a duplicate chat.
	KindConflict
	// KindNotFound is a lookup that matched nothing.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not found"
	default:
		return "remote"
	}
}

// Error is the error type returned by every Client action.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so errors.Is(err, ErrConflict)
// holds for any conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Msg != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrRemote     = &Error{Kind: KindRemote}
)

// KindOf reports the kind of err. Errors not produced by this package are
// treated as remote failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRemote
}

func validationError(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func conflictError(msg string) error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func notFoundError(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func remoteError(msg string, cause error) error {
	return &Error{Kind: KindRemote, Msg: msg, Err: cause}
}
