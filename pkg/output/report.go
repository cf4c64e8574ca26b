package output

import (
	"fmt"
	"io"
	"strings"
)

// ObjectReport is the measurement summary of one model object.
type ObjectReport struct {
	Name      string
	Kind      string
	Box       [6]float64
	Planar    bool
	Origin    [3]float64
	Normal    [3]float64
	Triangles int
}

// WriteReport prints one block per object. Colors are applied only when w
// is a terminal.
func WriteReport(w io.Writer, kernelName string, objects []ObjectReport) error {
	st := newReportStyles(w)
	label := func(s string) string { return st.label.Render(fmt.Sprintf("%-10s", s)) }

	var b strings.Builder
	fmt.Fprintf(&b, "kernel: %s\n", kernelName)
	fmt.Fprintf(&b, "objects: %d\n", len(objects))
	for _, o := range objects {
		fmt.Fprintf(&b, "\n%s (%s)\n", st.name.Render(o.Name), o.Kind)
		fmt.Fprintf(&b, "  %s [%g %g %g] - [%g %g %g]\n", label("bbox:"),
			o.Box[0], o.Box[1], o.Box[2], o.Box[3], o.Box[4], o.Box[5])
		if o.Planar {
			fmt.Fprintf(&b, "  %s %s\n", label("plane:"), st.planar.Render(fmt.Sprintf(
				"origin (%g %g %g) normal (%g %g %g)",
				o.Origin[0], o.Origin[1], o.Origin[2], o.Normal[0], o.Normal[1], o.Normal[2])))
		} else {
			fmt.Fprintf(&b, "  %s none\n", label("plane:"))
		}
		fmt.Fprintf(&b, "  %s %d\n", label("triangles:"), o.Triangles)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
