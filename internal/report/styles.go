package report

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#7D56F4")
	mutedColor   = lipgloss.Color("#666666")
	errorColor   = lipgloss.Color("#FF4B4B")

	l1Color     = lipgloss.Color("#04B575")
	l2Color     = lipgloss.Color("#FFA500")
	memoryColor = lipgloss.Color("#FF4B4B")
	faultColor  = lipgloss.Color("#FF00FF")
)

type styles struct {
	title   lipgloss.Style
	section lipgloss.Style
	rule    lipgloss.Style
	err     lipgloss.Style

	l1     lipgloss.Style
	l2     lipgloss.Style
	memory lipgloss.Style
	fault  lipgloss.Style
}

func newStyles(re *lipgloss.Renderer, color bool) styles {
	if !color {
		plain := re.NewStyle()
		return styles{
			title: plain, section: plain, rule: plain, err: plain,
			l1: plain, l2: plain, memory: plain, fault: plain,
		}
	}
	return styles{
		title:   re.NewStyle().Bold(true).Foreground(primaryColor),
		section: re.NewStyle().Bold(true),
		rule:    re.NewStyle().Foreground(mutedColor),
		err:     re.NewStyle().Foreground(errorColor),
		l1:      re.NewStyle().Foreground(l1Color),
		l2:      re.NewStyle().Foreground(l2Color),
		memory:  re.NewStyle().Foreground(memoryColor),
		fault:   re.NewStyle().Foreground(faultColor),
	}
}
