package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/feed/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr.
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a hint for err based on its code and returns err unchanged.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	w := h.Out
	if w == nil {
		w = os.Stderr
	}
	fe, _ := errors.As(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(w, "❌ Configuration not found. Create feed.yml or pass --config.\n")

	case errors.ErrCodeConfigInvalid:
		if fe != nil && fe.Details["field"] != nil {
			fmt.Fprintf(w, "❌ Invalid configuration value for '%v': %s\n", fe.Details["field"], fe.Message)
		} else {
			fmt.Fprintf(w, "❌ Invalid configuration: %v\n", err)
		}
		fmt.Fprintf(w, "Run 'feed config' to see the merged configuration.\n")

	case errors.ErrCodeTransportFailed, errors.ErrCodeNotConnected:
		fmt.Fprintf(w, "❌ Could not reach the live channel: %v\n", err)
		fmt.Fprintf(w, "Start a local peer with 'feed mock-peer' or run with --offline.\n")

	case errors.ErrCodeStateUnavailable:
		fmt.Fprintf(w, "❌ Preferences could not be saved: %v\n", err)
		fmt.Fprintf(w, "Check the state directory shown by 'feed paths'.\n")

	default:
		fmt.Fprintf(w, "❌ Error: %v\n", err)
	}

	if h.Verbose && fe != nil {
		fmt.Fprintf(w, "\nError details:\n%s\n", fe.ToJSON())
	}
	return err
}
