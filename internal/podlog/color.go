// File: internal/podlog/color.go
// Brief: Container prefix palette and rendering.

package podlog

import (
	"fmt"

	"github.com/fatih/color"
)

// ColorMode controls whether prefixes and report banners carry ANSI escapes.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

var prefixPalette = [...]color.Attribute{
	color.FgGreen,
	color.FgYellow,
	color.FgBlue,
	color.FgMagenta,
	color.FgCyan,
	color.FgWhite,
}

// Cursor walks the prefix palette, wrapping after the last entry. The zero
// value starts at the first color.
type Cursor struct {
	index int
}

func (c *Cursor) Next() color.Attribute {
	attr := prefixPalette[c.index]
	c.index = (c.index + 1) % len(prefixPalette)
	return attr
}

type painter struct {
	mode ColorMode
}

func (p painter) paint(attr color.Attribute, text string) string {
	c := color.New(attr)
	switch p.mode {
	case ColorAlways:
		c.EnableColor()
	case ColorNever:
		c.DisableColor()
	}
	return c.Sprint(text)
}

func initPrefix(index, total int, name string) string {
	if total > 1 {
		return fmt.Sprintf("[init-%d:%s]", index, name)
	}
	return fmt.Sprintf("[init:%s]", name)
}

func mainPrefix(name string) string {
	return fmt.Sprintf("[%s]", name)
}
