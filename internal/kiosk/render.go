package kiosk

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// RenderText writes v as a plain table: one column per day, one row per
// hour. The current slot is wrapped in brackets.
func RenderText(w io.Writer, v View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := make([]string, 0, len(v.Grid.Days)+1)
	header = append(header, "")
	for _, d := range v.Grid.Days {
		header = append(header, d.Label+" "+d.DisplayDate())
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for r, row := range v.Grid.Cells {
		line := make([]string, 0, len(row)+1)
		line = append(line, fmt.Sprintf("%02d:00", v.Grid.Hour(r)))
		for c, cell := range row {
			text := "-"
			if cell.Occupied {
				text = cell.Label
			}
			if v.Current != nil && v.Current.Row == r && v.Current.Col == c {
				text = "[" + text + "]"
			}
			line = append(line, text)
		}
		fmt.Fprintln(tw, strings.Join(line, "\t"))
	}
	return tw.Flush()
}
