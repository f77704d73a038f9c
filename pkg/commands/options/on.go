package options

import (
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/pomo/pkg/milestone"
)

const (
	layoutISO      = "2006-1-2"
	layoutISOShort = "1/2"
)

// OnOptions
type OnOptions struct {
	OnString string
}

func AddOnArgs(cmd *cobra.Command, o *OnOptions, usage string) {
	if usage == "" {
		usage = "Specify a date"
	}
	cmd.Flags().StringVar(&o.OnString, "on", "",
		usage+`, example: --on="2024-6-5" or --on="6/5".`)
}

// GetOn parses the date. An empty flag yields a zero date.
func (o *OnOptions) GetOn(now time.Time) (milestone.Date, error) {
	if o.OnString == "" {
		return milestone.Date{}, nil
	}
	t, err := time.Parse(layoutISO, o.OnString)
	if err != nil {
		// Let the year be the same.
		t, err = time.Parse(layoutISOShort, o.OnString)
		if err != nil {
			return milestone.ParseDate(o.OnString)
		}
		t = t.AddDate(now.Year(), 0, 0)
		// I am gonna assume if you said 1/3 on 12/5, you meant next year, not 11 months ago.
		if milestone.DateOf(t).Before(milestone.DateOf(now)) {
			t = t.AddDate(1, 0, 0)
		}
	}
	return milestone.DateOf(t), nil
}
