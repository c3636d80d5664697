// Package clipboard writes transcripts to the clipboard of the host
// running the gateway.
package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when the host has no clipboard utility
var ErrUnsupported = errors.New("system clipboard is not supported on this host")

// System writes to the host clipboard (pbcopy, xclip/xsel/wl-copy, or the
// Windows clipboard API)
type System struct {
	write       func(string) error
	unsupported bool
}

// NewSystem returns the host clipboard
func NewSystem() *System {
	return &System{
		write:       clipboard.WriteAll,
		unsupported: clipboard.Unsupported,
	}
}

// Supported reports whether a clipboard utility was found
func (s *System) Supported() bool {
	return !s.unsupported
}

// WriteText replaces the clipboard contents with text
func (s *System) WriteText(ctx context.Context, text string) error {
	if s.unsupported {
		return ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.write(text); err != nil {
		return fmt.Errorf("write system clipboard: %w", err)
	}
	return nil
}
