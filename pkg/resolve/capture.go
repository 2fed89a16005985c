package resolve

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

// Capture runs op with the process stdout and stderr redirected into an
// in-memory buffer and returns the result alongside everything written.
// Errors and panics raised by op are swallowed: they are rendered into the
// captured log and a nil result is returned, so a failing or crashing
// operation can never take the caller down.
//
// The redirect swaps the process-wide os.Stdout and os.Stderr, so Capture
// must not run concurrently with itself or with other writers that hold on
// to the original streams.
func Capture[T any](op func() (T, error)) (*T, string) {
	r, w, err := os.Pipe()
	if err != nil {
		// No pipe, no redirect. Still honor the swallow contract.
		var buf bytes.Buffer
		result := runShielded(op, &buf)
		return result, buf.String()
	}

	origStdout, origStderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = w, w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(&buf, r)
	}()

	result := runShielded(op, w)

	os.Stdout, os.Stderr = origStdout, origStderr
	w.Close()
	<-done
	r.Close()

	return result, buf.String()
}

// runShielded executes op, converting any error or panic into log output on
// sink. Only a clean return yields a non-nil result.
func runShielded[T any](op func() (T, error), sink io.Writer) (result *T) {
	defer func() {
		if rec := recover(); rec != nil {
			fmt.Fprintf(sink, "panic: %v\n%s", rec, debug.Stack())
			result = nil
		}
	}()

	value, err := op()
	if err != nil {
		fmt.Fprintf(sink, "error: %+v\n", err)
		return nil
	}
	return &value
}
