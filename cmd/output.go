package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/grovetools/notify/internal/hub"
	"github.com/grovetools/notify/tui/theme"
)

// printer writes hub updates as lines, either styled text or JSON.
type printer struct {
	w      io.Writer
	errW   io.Writer
	json   bool
	styled bool
	theme  *theme.Theme
}

func newPrinter(w, errW io.Writer, asJSON bool) *printer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd())
	}
	return &printer{w: w, errW: errW, json: asJSON, styled: styled, theme: theme.DefaultTheme}
}

// Print writes u. Text output carries events and errors only; JSON output
// carries every update.
func (p *printer) Print(u hub.Update) error {
	if p.json {
		data, err := json.Marshal(u)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.w, string(data))
		return err
	}

	switch u.Type {
	case hub.UpdateEvent:
		if u.Event == nil {
			return nil
		}
		if p.styled {
			_, err := fmt.Fprintf(p.w, "%s %s\n", theme.Icon(u.Event.Kind), p.theme.RenderEvent(*u.Event))
			return err
		}
		_, err := fmt.Fprintln(p.w, u.Event.String())
		return err
	case hub.UpdateError:
		_, err := fmt.Fprintf(p.errW, "%s %v\n", p.theme.Error.Render("error:"), u.Err)
		return err
	}
	return nil
}
