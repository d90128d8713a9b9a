package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/notify/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message for err based on its code and returns it.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	var notifyErr *errors.NotifyError
	if ne, ok := err.(*errors.NotifyError); ok {
		notifyErr = ne
	}
	detail := func(key string) interface{} {
		if notifyErr == nil {
			return nil
		}
		return notifyErr.Details[key]
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "❌ Configuration not found. Create a notify.yml or pass --config.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "❌ Invalid configuration: %v\n", err)
		fmt.Fprintf(h.Out, "Run 'notify config validate' for details.\n")

	case errors.ErrCodeSourceSpawn:
		fmt.Fprintf(h.Out, "❌ Could not start %v: %v\n", detail("binary"), err)
		if detail("notFound") == true {
			fmt.Fprintf(h.Out, "Install inotify-tools or set source.binary in notify.yml.\n")
		}

	case errors.ErrCodeSourceExit:
		fmt.Fprintf(h.Out, "❌ The watcher exited unexpectedly: %v\n", err)
		if code := detail("exitCode"); code != nil {
			fmt.Fprintf(h.Out, "Exit code %v. Check that the watched path exists and is readable.\n", code)
		}

	case errors.ErrCodeJournal:
		fmt.Fprintf(h.Out, "❌ Journal error: %v\n", err)

	default:
		fmt.Fprintf(h.Out, "❌ Error: %v\n", err)
	}

	if h.Verbose && notifyErr != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", notifyErr.ToJSON())
	}
	return err
}
