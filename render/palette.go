package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/notify"
)

// --- Kanagawa Dragon (dark) palette ---
const (
	darkGreen     = "#98BB6C"
	darkYellow    = "#FF9E3B"
	darkRed       = "#FF5D62"
	darkBlue      = "#7FB4CA"
	darkViolet    = "#957FB8"
	darkPink      = "#D27E99"
	darkText      = "#DCD7BA"
	darkMutedText = "#727169"
)

// --- Kanagawa Wave (light-inspired) palette ---
const (
	lightGreen     = "#4E7C5A"
	lightYellow    = "#A68A64"
	lightRed       = "#C34043"
	lightBlue      = "#4F7CAC"
	lightViolet    = "#674D7A"
	lightPink      = "#B35C74"
	lightText      = "#2B2F42"
	lightMutedText = "#6C7086"
)

// Colors is the palette for one theme.
type Colors struct {
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Accent  lipgloss.Color
	Like    lipgloss.Color
	Info    lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Danger  lipgloss.Color
}

// DarkColors returns the dark theme palette.
func DarkColors() Colors {
	return Colors{
		Text:    darkText,
		Muted:   darkMutedText,
		Accent:  darkViolet,
		Like:    darkPink,
		Info:    darkBlue,
		Success: darkGreen,
		Warning: darkYellow,
		Danger:  darkRed,
	}
}

// LightColors returns the light theme palette.
func LightColors() Colors {
	return Colors{
		Text:    lightText,
		Muted:   lightMutedText,
		Accent:  lightViolet,
		Like:    lightPink,
		Info:    lightBlue,
		Success: lightGreen,
		Warning: lightYellow,
		Danger:  lightRed,
	}
}

// ColorsFor returns the palette for a theme name. Unknown names get light.
func ColorsFor(theme string) Colors {
	if models.NormalizeTheme(theme) == models.ThemeDark {
		return DarkColors()
	}
	return LightColors()
}

// Styles are the lipgloss styles built from a palette.
type Styles struct {
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Author   lipgloss.Style
	Like     lipgloss.Style
	Pending  lipgloss.Style
	Severity map[notify.Severity]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, c Colors) Styles {
	return Styles{
		Text:    r.NewStyle().Foreground(c.Text),
		Muted:   r.NewStyle().Foreground(c.Muted),
		Author:  r.NewStyle().Foreground(c.Accent).Bold(true),
		Like:    r.NewStyle().Foreground(c.Like),
		Pending: r.NewStyle().Foreground(c.Muted).Italic(true),
		Severity: map[notify.Severity]lipgloss.Style{
			notify.SeverityInfo:    r.NewStyle().Foreground(c.Info),
			notify.SeveritySuccess: r.NewStyle().Foreground(c.Success).Bold(true),
			notify.SeverityWarning: r.NewStyle().Foreground(c.Warning),
			notify.SeverityDanger:  r.NewStyle().Foreground(c.Danger).Bold(true),
		},
	}
}
