// Package ui formats lighthouse command output for a terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	beam   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	ok     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	bad    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	notice = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
	quiet  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Accent highlights an image or container name.
func Accent(s string) string { return beam.Render(s) }

// Muted renders secondary text such as build output.
func Muted(s string) string { return quiet.Render(s) }

// State colours a container state as reported by the engine.
func State(s string) string {
	switch s {
	case "running":
		return ok.Render(s)
	case "missing", "exited", "dead":
		return bad.Render(s)
	}
	return notice.Render(s)
}

func mark(style lipgloss.Style, symbol, format string, a []any) string {
	return style.Render(symbol) + " " + fmt.Sprintf(format, a...)
}

func SuccessMsg(format string, a ...any) string { return mark(ok, "+", format, a) }
func WarnMsg(format string, a ...any) string    { return mark(notice, "!", format, a) }
func ErrorMsg(format string, a ...any) string   { return mark(bad, "x", format, a) }
func InfoMsg(format string, a ...any) string    { return mark(beam, ">", format, a) }

// Field is one named value in a Details listing.
type Field struct {
	Name  string
	Value string
}

// Details lists fields under a message, indented and with names padded to
// a common width. Empty values are left out.
func Details(fields ...Field) string {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Name))
	}

	var sb strings.Builder
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		fmt.Fprintf(&sb, "    %s  %s\n", quiet.Render(fmt.Sprintf("%-*s", width, f.Name)), f.Value)
	}
	return sb.String()
}

// Table lays rows out in columns under an underlined header.
func Table(headers []string, rows [][]string) string {
	head := beam.Bold(true).PaddingRight(2)
	cell := lipgloss.NewStyle().PaddingRight(2)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(quiet).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return head
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}
