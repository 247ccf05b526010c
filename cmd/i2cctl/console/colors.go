package console

import "github.com/fatih/color"

// Colour helpers for terminal output. They fall back to plain text when
// the output is not a terminal.
var (
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
	// Bold is used for table headers.
	Bold = color.New(color.Bold).SprintFunc()
)
