package generate

import (
	"errors"
	"strings"
)

// GenerationFailure wraps any error raised while preparing the model or
// producing a completion.
type GenerationFailure struct{ Err error }

func (e GenerationFailure) Error() string {
	return "Failed to generate response. The model may need to be reloaded. Please restart the app."
}

func (e GenerationFailure) Unwrap() error { return e.Err }

func IsGenerationFailure(err error) bool {
	var e GenerationFailure
	return errors.As(err, &e)
}

var contextFullMarkers = []string{"Context is full", "IllegalStateException"}

// IsContextFull reports whether err, or any error it wraps, says the
// runtime context window is exhausted.
func IsContextFull(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		for _, m := range contextFullMarkers {
			if strings.Contains(msg, m) {
				return true
			}
		}
	}
	return false
}

// UserMessage renders err as text suitable for the chat transcript.
func UserMessage(err error) string {
	if IsContextFull(err) {
		return `The conversation is too long. Please use the "Clear" button to start fresh, or ask shorter questions.`
	}
	msg := "Unknown error occurred"
	if err != nil {
		msg = err.Error()
	}
	return "Error: " + msg + "\n\nTip: Try clearing the chat or restarting the app if this persists."
}
