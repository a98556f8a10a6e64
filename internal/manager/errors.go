package manager

import (
	"errors"
	"fmt"
)

// TooBusy signals queue timeout or overflow (HTTP 429).
type TooBusy struct{}

func (TooBusy) Error() string { return "too busy: a generation is already in progress" }

// IsTooBusy reports whether err indicates backpressure.
func IsTooBusy(err error) bool {
	var e TooBusy
	return errors.As(err, &e)
}

// DependencyUnavailable signals a missing runtime dependency such as the
// llama.cpp library or the llama-server binary.
type DependencyUnavailable struct{ Msg string }

func (e DependencyUnavailable) Error() string { return e.Msg }

// ErrDependencyUnavailable constructs a DependencyUnavailable.
func ErrDependencyUnavailable(msg string) error { return DependencyUnavailable{Msg: msg} }

func IsDependencyUnavailable(err error) bool {
	var e DependencyUnavailable
	return errors.As(err, &e)
}

// DownloadFailure is returned when the model server answers with a non-200
// status.
type DownloadFailure struct{ Status int }

func (e DownloadFailure) Error() string {
	return fmt.Sprintf("Download failed with status code: %d", e.Status)
}

func IsDownloadFailure(err error) bool {
	var e DownloadFailure
	return errors.As(err, &e)
}

// DownloadIncomplete is returned when a finished download is smaller than
// the asset's minimum valid size.
type DownloadIncomplete struct {
	Got  int64
	Want int64
}

func (e DownloadIncomplete) Error() string {
	return fmt.Sprintf("Download incomplete. Expected ~%dMB, got %dMB", e.Want>>20, e.Got>>20)
}

func IsDownloadIncomplete(err error) bool {
	var e DownloadIncomplete
	return errors.As(err, &e)
}

// InitializationFailure wraps a runtime load error.
type InitializationFailure struct{ Err error }

func (e InitializationFailure) Error() string {
	return fmt.Sprintf("Model initialization failed: %v. Try restarting the app or clearing app data.", e.Err)
}

func (e InitializationFailure) Unwrap() error { return e.Err }

func IsInitializationFailure(err error) bool {
	var e InitializationFailure
	return errors.As(err, &e)
}
