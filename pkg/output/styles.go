package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Report colors. Only foreground colors are used, so output to a
// non-terminal writer stays plain text.
var (
	ColorCyan    = lipgloss.Color("14")
	ColorGreen   = lipgloss.Color("82")
	ColorDimGray = lipgloss.Color("240")
)

// reportStyles holds the styles of one report, bound to the renderer of
// its writer.
type reportStyles struct {
	name   lipgloss.Style
	planar lipgloss.Style
	label  lipgloss.Style
}

func newReportStyles(w io.Writer) reportStyles {
	r := lipgloss.NewRenderer(w)
	return reportStyles{
		name:   r.NewStyle().Foreground(ColorCyan),
		planar: r.NewStyle().Foreground(ColorGreen),
		label:  r.NewStyle().Foreground(ColorDimGray),
	}
}
