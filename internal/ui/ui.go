// Package ui provides lipgloss styles for CLI output.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

// RenderPass styles a success marker.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn styles a warning marker.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderError styles an error marker.
func RenderError(s string) string { return errorStyle.Render(s) }

// RenderAccent styles an informational marker.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderMuted styles secondary detail text.
func RenderMuted(s string) string { return mutedStyle.Render(s) }

// RenderTitle styles a heading.
func RenderTitle(s string) string { return titleStyle.Render(s) }
