// Package generate drives a single chat completion against the model
// manager: it formats the prompt, admits the request, streams tokens through
// a gibberish filter and stop-sequence matcher, and classifies failures for
// display.
package generate
