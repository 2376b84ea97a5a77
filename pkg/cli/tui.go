package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme of the status frame.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Key    lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Key:    lipgloss.NewStyle().Foreground(t.Dim),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Section is a labeled block of lines. Content is called on every render.
type Section struct {
	Label   string
	Content func() []string
}

// Frame renders a bordered status screen: a title line, then one block per
// section showing the last lines that fit, then a help line.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Sections []Section
	Help     string
}

// Render renders the frame to a string.
func (f Frame) Render(width, height int) string {
	if width < 8 || height < 6 {
		return "Loading..."
	}

	bc := f.Styles.Border
	inner := width - 4

	lines := []string{bc.Render("╭" + strings.Repeat("─", width-2) + "╮")}

	title := f.Styles.Title.Render(f.Title)
	status := f.Styles.Help.Render("[" + f.Status + "]")
	pad := max(0, width-5-lipgloss.Width(title)-lipgloss.Width(status))
	lines = append(lines,
		bc.Render("│")+" "+title+" "+status+strings.Repeat(" ", pad)+" "+bc.Render("│"),
		bc.Render("│")+strings.Repeat(" ", width-2)+bc.Render("│"),
	)

	n := max(len(f.Sections), 1)
	// top, title, spacer, bottom, help and one label row per section
	rows := max((height-5-n)/n, 2)
	for _, sec := range f.Sections {
		lines = append(lines, f.section(sec, rows, width, inner)...)
	}

	lines = append(lines,
		bc.Render("╰"+strings.Repeat("─", width-2)+"╯"),
		f.Styles.Help.Render(f.Help),
	)
	return strings.Join(lines, "\n")
}

func (f Frame) section(sec Section, rows, width, inner int) []string {
	bc := f.Styles.Border
	label := f.Styles.Label.Render(sec.Label)
	pad := max(0, width-3-lipgloss.Width(label))
	out := []string{bc.Render("├─") + label + bc.Render(strings.Repeat("─", pad)+"┤")}

	var content []string
	if sec.Content != nil {
		content = sec.Content()
	}
	start := max(0, len(content)-rows)
	for i := range rows {
		text := ""
		if idx := start + i; idx < len(content) {
			text = content[idx]
		}
		if inner > 1 && lipgloss.Width(text) > inner {
			text = truncate(text, inner-1) + "…"
		}
		out = append(out, bc.Render("│")+" "+text+
			strings.Repeat(" ", max(0, inner-lipgloss.Width(text)))+" "+bc.Render("│"))
	}
	return out
}

// Pairs formats alternating keys and values as aligned "key  value" lines.
func (s Styles) Pairs(kv ...string) []string {
	width := 0
	for i := 0; i < len(kv); i += 2 {
		width = max(width, len(kv[i]))
	}
	var out []string
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i] + strings.Repeat(" ", width-len(kv[i]))
		out = append(out, s.Key.Render(key)+"  "+kv[i+1])
	}
	return out
}

// truncate cuts s to at most width cells without splitting a rune.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	cur := 0
	for i, r := range s {
		w := lipgloss.Width(string(r))
		if cur+w > width {
			return s[:i]
		}
		cur += w
	}
	return s
}
