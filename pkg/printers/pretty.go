package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/pomo/pkg/milestone"
)

type PrettyPrint struct {
	ShowID bool
	// Out defaults to color.Output.
	Out io.Writer
}

var (
	spacing = strings.Repeat(" ", len("2f1c3f44-8a5e-4d6e-9a57-1f0e0e9c1d2b  "))
)

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

// Linef prints a plain status line.
func (pp *PrettyPrint) Linef(format string, a ...any) {
	_, _ = fmt.Fprintf(pp.out(), format+"\n", a...)
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = t.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprintln(pp.out(), title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int, noun string) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = t.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprint(pp.out(), title)
	_, _ = c.Fprintf(pp.out(), " - %d", count)

	switch count {
	case 1:
		_, _ = c.Fprintf(pp.out(), " %s\n", noun)
	default:
		_, _ = c.Fprintf(pp.out(), " %ss\n", noun)
	}
}

func (pp *PrettyPrint) none() {
	f := color.New(color.Faint, color.Italic)
	if pp.ShowID {
		_, _ = f.Fprint(pp.out(), spacing)
	}
	_, _ = f.Fprint(pp.out(), " none\n\n")
}

// Glyph is the one-character symbol for a milestone kind.
func Glyph(k milestone.Kind) string {
	switch k {
	case milestone.KindTaskDue:
		return "◆"
	case milestone.KindDeadline:
		return "!"
	default:
		return "●"
	}
}

func status(done bool) string {
	if done {
		return "✓"
	}
	return " "
}

// Milestones prints one row per milestone.
func (pp *PrettyPrint) Milestones(ms ...milestone.Milestone) {
	if len(ms) == 0 {
		pp.none()
		return
	}

	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	f := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	for _, m := range ms {
		title := m.Title
		if m.Completed {
			title = f.Sprint(title)
		}
		row := []interface{}{status(m.Completed), Glyph(m.Kind.OrDefault()), m.DueDate.String(), title}
		if pp.ShowID {
			row = append([]interface{}{y.Sprint(m.ID)}, row...)
		}
		tbl.AddRow(row...)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	_, _ = fmt.Fprintln(pp.out(), "")
}

// Tasks prints one row per task.
func (pp *PrettyPrint) Tasks(ts ...milestone.Task) {
	if len(ts) == 0 {
		pp.none()
		return
	}

	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	f := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	for _, t := range ts {
		due := f.Sprint("no due date")
		if t.HasDue() {
			due = t.DueDate.String()
		}
		row := []interface{}{status(t.Completed), due, t.Title}
		if pp.ShowID {
			row = append([]interface{}{y.Sprint(t.ID)}, row...)
		}
		tbl.AddRow(row...)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	_, _ = fmt.Fprintln(pp.out(), "")
}

// JSON writes v as indented JSON.
func (pp *PrettyPrint) JSON(v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(pp.out(), string(b))
	return err
}
