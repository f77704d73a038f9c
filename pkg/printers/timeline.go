package printers

import (
	"fmt"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/pomo/pkg/milestone"
	"tableflip.dev/pomo/pkg/timeline"
)

// DefaultAxisWidth is the axis width used when none is given.
const DefaultAxisWidth = 60

const labelLayout = "01-02"

// Axis renders the model as four plain-text rows: markers above the line, the
// line itself with today as '|', markers below, and date labels. Markers use
// the letter Key returns for the item's index.
func Axis(rm timeline.RenderModel, width int) []string {
	if width < len(labelLayout)*2+1 {
		width = DefaultAxisWidth
	}
	top := []rune(strings.Repeat(" ", width))
	line := []rune(strings.Repeat("-", width))
	bottom := []rune(strings.Repeat(" ", width))

	for i, it := range rm.Items {
		row := bottom
		if it.IsTop {
			row = top
		}
		place(row, column(it.Position, width), Key(i))
	}
	line[column(rm.Today.Position, width)] = '|'

	labels := []rune(strings.Repeat(" ", width))
	used := make([]bool, width)
	ticks := rm.Range.Ticks(width/(len(labelLayout)+3) + 1)
	if n := len(ticks); n > 1 {
		// Ends first so the range is always labelled.
		ticks = append([]milestone.Date{ticks[0], ticks[n-1]}, ticks[1:n-1]...)
	}
	for _, d := range ticks {
		text := []rune(d.Time().Format(labelLayout))
		col := column(rm.Range.Position(d), width)
		if col+len(text) > width {
			col = width - len(text)
		}
		if !free(used, col-1, col+len(text)+1) {
			continue
		}
		copy(labels[col:], text)
		for c := col; c < col+len(text); c++ {
			used[c] = true
		}
	}

	return []string{
		strings.TrimRight(string(top), " "),
		string(line),
		strings.TrimRight(string(bottom), " "),
		strings.TrimRight(string(labels), " "),
	}
}

func free(used []bool, from, to int) bool {
	for c := from; c < to; c++ {
		if c >= 0 && c < len(used) && used[c] {
			return false
		}
	}
	return true
}

// Key is the marker letter for the i-th item.
func Key(i int) rune {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return rune(letters[i%len(letters)])
}

func column(pos float64, width int) int {
	col := int(math.Round(pos / 100 * float64(width-1)))
	if col < 0 {
		return 0
	}
	if col >= width {
		return width - 1
	}
	return col
}

// place writes r at col, or the nearest free column to its right, or to its
// left when the row is full to the end.
func place(row []rune, col int, r rune) {
	for c := col; c < len(row); c++ {
		if row[c] == ' ' {
			row[c] = r
			return
		}
	}
	for c := col - 1; c >= 0; c-- {
		if row[c] == ' ' {
			row[c] = r
			return
		}
	}
}

// Timeline prints the axis followed by a legend of its items.
func (pp *PrettyPrint) Timeline(title string, rm timeline.RenderModel, width int) {
	pp.Title(title)

	faint := color.New(color.Faint)
	today := color.New(color.FgHiGreen, color.Bold)
	rows := Axis(rm, width)
	_, _ = fmt.Fprintln(pp.out(), rows[0])
	_, _ = fmt.Fprintln(pp.out(), strings.Replace(rows[1], "|", today.Sprint("|"), 1))
	_, _ = fmt.Fprintln(pp.out(), rows[2])
	_, _ = faint.Fprintln(pp.out(), rows[3])
	_, _ = fmt.Fprintln(pp.out(), "")

	if len(rm.Items) == 0 {
		pp.none()
	} else {
		y := color.New(color.FgHiYellow, color.Italic, color.Faint)
		tbl := uitable.New()
		tbl.Separator = "  "
		for i, it := range rm.Items {
			side := "below"
			if it.IsTop {
				side = "above"
			}
			row := []interface{}{string(Key(i)), status(it.Completed), Glyph(it.Kind), it.DueDate.String(), it.Title, faint.Sprint(side)}
			if pp.ShowID {
				row = append([]interface{}{y.Sprint(it.ID)}, row...)
			}
			tbl.AddRow(row...)
		}
		_, _ = fmt.Fprintln(pp.out(), tbl)
		_, _ = fmt.Fprintln(pp.out(), "")
	}
	_, _ = today.Fprintf(pp.out(), "| today %s", rm.Today.Date)
	_, _ = faint.Fprintf(pp.out(), "  (%s to %s)\n", rm.Range.Start, rm.Range.End)
}
