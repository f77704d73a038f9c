package printers

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/pomo/pkg/milestone"
)

const width = len("11 12 13 14 15 16 17") // an example week

// Month prints a calendar of the month containing then, with days that have
// milestones due in bold and today underlined.
func (pp *PrettyPrint) Month(then, today milestone.Date, ms ...milestone.Milestone) {
	count := make([]int, DaysIn(then.Time()))
	for _, m := range ms {
		d := m.DueDate.Time()
		if d.Year() == then.Time().Year() && d.Month() == then.Time().Month() {
			count[d.Day()-1]++
		}
	}
	highlight := 0
	if t := today.Time(); t.Year() == then.Time().Year() && t.Month() == then.Time().Month() {
		highlight = t.Day()
	}
	pp.PrintMonthCount(then.Time(), count, highlight)
}

func (pp *PrettyPrint) PrintMonthCount(then time.Time, count []int, today int) {
	d := StartDay(then)

	tf := color.New(color.FgWhite, color.Italic)

	m := then.Month().String()
	mid := (width - len(m)) / 2
	_, _ = tf.Fprintf(pp.out(), "%s%s%s\n", strings.Repeat(" ", mid), m, strings.Repeat(" ", width-mid-len(m)))

	days := DaysIn(then)

	// Pad out the start of the month.
	for i := time.Sunday; i < d; i++ {
		_, _ = fmt.Fprint(pp.out(), "   ")
	}

	l1 := color.New(color.Faint, color.FgWhite)
	l2 := color.New(color.Bold, color.FgHiWhite)

	for i := 0; i < days; i++ {
		printer := l1
		if i < len(count) && count[i] > 0 {
			printer = l2
		}
		if today == i+1 {
			printer = color.New(color.Underline, color.FgHiGreen)
		}
		_, _ = printer.Fprintf(pp.out(), "%2d ", i+1)

		d++
		if d > time.Saturday {
			d = time.Sunday
			_, _ = fmt.Fprint(pp.out(), "\n")
		}
	}
	_, _ = fmt.Fprint(pp.out(), "\n\n")
}

func DaysIn(then time.Time) int {
	return time.Date(then.UTC().Year(), then.UTC().Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartDay(then time.Time) time.Weekday {
	return time.Date(then.UTC().Year(), then.UTC().Month(), 1, 1, 0, 0, 0, time.UTC).Weekday()
}
