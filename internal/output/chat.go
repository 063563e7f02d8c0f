package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"edger/internal/service"
)

// Palette of the chat transcript.
var (
	colorUser      = lipgloss.Color("#06B6D4")
	colorAssistant = lipgloss.Color("#7C3AED")
	colorMuted     = lipgloss.Color("#6C7086")
	colorError     = lipgloss.Color("#F38BA8")
)

// ChatStyles renders the chat transcript. Colours are dropped when the
// writer is not a terminal.
type ChatStyles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
}

// NewChatStyles creates styles bound to the colour profile of w.
func NewChatStyles(w io.Writer) *ChatStyles {
	r := lipgloss.NewRenderer(w)
	return &ChatStyles{
		User:      r.NewStyle().Foreground(colorUser).Bold(true),
		Assistant: r.NewStyle().Foreground(colorAssistant).Bold(true),
		Muted:     r.NewStyle().Foreground(colorMuted),
		Error:     r.NewStyle().Foreground(colorError),
	}
}

// FormatChatMessage formats one transcript entry as "you> text" or "agent> text".
func (s *ChatStyles) FormatChatMessage(w io.Writer, m service.ChatMessage) {
	prefix := s.Assistant.Render("agent>")
	if m.Role == service.RoleUser {
		prefix = s.User.Render("you>")
	}
	text := strings.TrimSpace(m.Content)
	if text == "" && m.AgentResponse != nil {
		text = s.Muted.Render("(" + string(m.AgentResponse.Type) + ")")
	}
	fmt.Fprintf(w, "%s %s\n", prefix, text)
}

// FormatSuggestions formats the tasks proposed in a reply.
func (s *ChatStyles) FormatSuggestions(w io.Writer, tasks []service.TaskRequest) {
	fmt.Fprintln(w, s.Muted.Render("Suggested tasks:"))
	for i, t := range tasks {
		FormatSuggestion(w, i+1, t)
	}
}

// FormatHint formats a muted hint line.
func (s *ChatStyles) FormatHint(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, s.Muted.Render(fmt.Sprintf(format, args...)))
}

// FormatError formats an error line.
func (s *ChatStyles) FormatError(w io.Writer, err error) {
	fmt.Fprintln(w, s.Error.Render("error: "+err.Error()))
}
