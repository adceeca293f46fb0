package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _____     _ _                         ", "#fbbf24"},
	{" |_   _|_ _| (_)___ _ __ ___   __ _ _ __ ", "#f59e0b"},
	{"   | |/ _` | | / __| '_ ` _ \\ / _` | '_ \\", "#f97316"},
	{"   | | (_| | | \\__ \\ | | | | | (_| | | | |", "#ef4444"},
	{"   |_|\\__,_|_|_|___/_| |_| |_|\\__,_|_| |_|", "#dc2626"},
}

// PrintBanner writes the Talisman banner in a warm gradient. Colors degrade to the
// profile of out, so plain writers get plain text.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, out.String("   v"+version).Faint())
	}
	fmt.Fprintln(w)
}
