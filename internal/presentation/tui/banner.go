package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the tether ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  _       _   _", "#818cf8"},
		{" | |_ ___| |_| |__   ___ _ __", "#a78bfa"},
		{" | __/ _ \\ __| '_ \\ / _ \\ '__|", "#c084fc"},
		{" | ||  __/ |_| | | |  __/ |", "#e879f9"},
		{"  \\__\\___|\\__|_| |_|\\___|_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
