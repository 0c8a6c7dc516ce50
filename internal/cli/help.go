package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Italic(true)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor)

	helpNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AA00")).
			Bold(true)

	helpHintStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

var examples = []string{
	"eeg_recording_01.csv",
	"--seconds 120 --logs recordings/",
	"--notch auto --edf --db sessions.db eeg_recording_*.csv",
}

// helpEntry is one row of the arguments or flags listing
type helpEntry struct {
	name string
	help string
	hint string
}

// StyledHelpPrinter renders kong help with the eegbands palette. Flag and
// argument names are padded to a common column.
func StyledHelpPrinter(options kong.HelpOptions) func(options kong.HelpOptions, ctx *kong.Context) error {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		var sb strings.Builder
		name := ctx.Model.Name

		sb.WriteString(helpTitleStyle.Render("eegbands 🧠"))
		sb.WriteString("\n")
		sb.WriteString(helpDescStyle.Render("EEG band power analysis for Muse headband recordings"))
		sb.WriteString("\n\n")

		writeHelpSection(&sb, "Usage:", []helpEntry{{name: name + " [flags] <recordings> ..."}})
		writeHelpSection(&sb, "Arguments:", positionalEntries(ctx.Model.Node))
		writeHelpSection(&sb, "Flags:", flagEntries(ctx.Model.Node))

		usage := make([]helpEntry, len(examples))
		for i, ex := range examples {
			usage[i] = helpEntry{name: name + " " + ex}
		}
		writeHelpSection(&sb, "Examples:", usage)

		_, err := io.WriteString(ctx.Stdout, sb.String())
		return err
	}
}

// writeHelpSection writes a titled, column-aligned list. Empty lists are skipped.
func writeHelpSection(sb *strings.Builder, title string, entries []helpEntry) {
	if len(entries) == 0 {
		return
	}

	width := 0
	for _, e := range entries {
		if e.help != "" && len(e.name) > width {
			width = len(e.name)
		}
	}

	sb.WriteString(helpSectionStyle.Render(title))
	sb.WriteString("\n")
	for _, e := range entries {
		sb.WriteString("  ")
		if e.help == "" {
			sb.WriteString(e.name)
		} else {
			sb.WriteString(helpNameStyle.Render(e.name))
			sb.WriteString(strings.Repeat(" ", width-len(e.name)+2))
			sb.WriteString(e.help)
		}
		if e.hint != "" {
			sb.WriteString(" ")
			sb.WriteString(helpHintStyle.Render("(" + e.hint + ")"))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func positionalEntries(node *kong.Node) []helpEntry {
	var entries []helpEntry
	for _, arg := range node.Positional {
		entries = append(entries, helpEntry{name: arg.Summary(), help: arg.Help})
	}
	return entries
}

// flagEntries lists -h first, then the visible flags with their default and
// environment variable.
func flagEntries(node *kong.Node) []helpEntry {
	entries := []helpEntry{{name: "-h, --help", help: "Show context-sensitive help."}}

	for _, f := range node.Flags {
		if f.Name == "help" || f.Hidden {
			continue
		}

		name := "    --" + f.Name
		if f.Short != 0 {
			name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
		}
		if !f.IsBool() && f.PlaceHolder != "" {
			name += "=" + strings.ToUpper(f.PlaceHolder)
		}

		var hints []string
		if f.Default != "" {
			hints = append(hints, "default: "+f.Default)
		}
		if len(f.Envs) > 0 {
			hints = append(hints, "$"+strings.Join(f.Envs, ", $"))
		}

		entries = append(entries, helpEntry{name: name, help: f.Help, hint: strings.Join(hints, "; ")})
	}
	return entries
}
