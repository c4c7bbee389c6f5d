package store

import (
	"errors"
	"fmt"
)

// Kind classifies a remote failure.
type Kind int

const (
	// KindNetwork: the service could not be reached, timed out, or the
	// request was canceled.
	KindNetwork Kind = iota + 1
	// KindServer: the service answered with a non-success status or a body
	// that could not be used.
	KindServer
	// KindValidation: a precondition failed before any request was sent.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is against a *Failure of the matching kind.
var (
	ErrNetwork    = errors.New("store: network failure")
	ErrServer     = errors.New("store: server failure")
	ErrValidation = errors.New("store: validation failure")
)

// Failure is the error type returned by every store operation.
type Failure struct {
	Op     string // fetch, save, upload
	Kind   Kind
	Status int // HTTP status when the service answered, else 0
	Err    error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s: %s failure (status %d): %v", f.Op, f.Kind, f.Status, f.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return f.Kind == KindNetwork
	case ErrServer:
		return f.Kind == KindServer
	case ErrValidation:
		return f.Kind == KindValidation
	}
	return false
}

// KindOf returns the kind of the first *Failure in err's chain.
func KindOf(err error) (Kind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}

func networkFailure(op string, err error) error {
	return &Failure{Op: op, Kind: KindNetwork, Err: err}
}

func serverFailure(op string, status int, err error) error {
	return &Failure{Op: op, Kind: KindServer, Status: status, Err: err}
}

func validationFailure(op string, err error) error {
	return &Failure{Op: op, Kind: KindValidation, Err: err}
}
