package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docintel/internal/domain"
)

// AgentPort is the TUI-facing subset of the agent.
type AgentPort interface {
	Ask(ctx context.Context, question string) (domain.Answer, error)
	Stats() (domain.Stats, error)
}

// turn is one entry of the conversation transcript. The transcript is
// owned here, per session; the agent itself is conversation-free.
type turn struct {
	role    string // "user" or "assistant"
	content string
	sources []domain.SearchResult
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	agent    AgentPort
	input    textinput.Model
	viewport viewport.Model
	turns    []turn
	status   string
	thinking bool
	ready    bool
}

type answerMsg struct {
	answer domain.Answer
	err    error
}

// New creates a new chat model instance.
func New(agent AgentPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{agent: agent, input: ti, viewport: vp}
	if stats, err := agent.Stats(); err == nil {
		m.status = fmt.Sprintf("%d documents, %d chunks indexed in %s. Type a question.",
			stats.DocumentsLoaded, stats.ChunksCreated, stats.ProcessingTime.Round(10*time.Millisecond))
		if stats.IndexReused {
			m.status = "Reused persisted index. " + m.status
		}
	}
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case answerMsg:
		m.thinking = false
		if msg.err != nil {
			m.status = formatError(msg.err)
		} else {
			m.turns = append(m.turns, turn{role: "assistant", content: msg.answer.Text, sources: msg.answer.Sources})
			m.status = "Type a question."
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.thinking {
				m.turns = append(m.turns, turn{role: "user", content: q})
				m.input.SetValue("")
				m.thinking = true
				m.status = "Analyzing documents..."
				m.viewport.SetContent(m.renderTranscript())
				m.viewport.GotoBottom()
				agent := m.agent
				return m, func() tea.Msg {
					ans, err := agent.Ask(context.Background(), q)
					return answerMsg{answer: ans, err: err}
				}
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Intelligence Agent")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "Ask a question to get started."
	}
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch t.role {
		case "user":
			b.WriteString(userStyle.Render("You: ") + t.content)
		default:
			b.WriteString(assistantStyle.Render("Agent: ") + t.content)
			if len(t.sources) > 0 {
				b.WriteString("\n" + sourceStyle.Render(renderSources(t.sources)))
			}
		}
	}
	return b.String()
}

func renderSources(sources []domain.SearchResult) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = fmt.Sprintf("%s p.%d (%.2f)", s.Chunk.Source, s.Chunk.PageIndex+1, s.Score)
	}
	return "Sources: " + strings.Join(parts, ", ")
}

func formatError(err error) string {
	switch {
	case errors.Is(err, domain.ErrExternalService):
		return "Error: the language model is unavailable. Try again."
	case errors.Is(err, domain.ErrConfiguration):
		return "Error: no chat model configured. Set an API key and restart."
	default:
		return "Error: " + err.Error()
	}
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
