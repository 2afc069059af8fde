package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

const (
	minTopK      = 1
	maxTopK      = 5
	defaultTopK  = 3
	entriesLimit = 10
	askTimeout   = 90 * time.Second
)

// FAQPort is the TUI-facing subset of the FAQ API.
type FAQPort interface {
	Ask(ctx context.Context, question string, topK int) (faq.AskResponse, error)
	Entries(ctx context.Context, limit int) ([]faq.Record, error)
}

type exchange struct {
	question string
	answer   string
	faqs     []faq.RetrievalResult
	source   string
	err      error
}

type answerMsg struct {
	question string
	resp     faq.AskResponse
	err      error
}

type entriesMsg struct {
	entries []faq.Record
	err     error
}

// Model is the Bubble Tea model for the FAQ chat.
type Model struct {
	port        FAQPort
	input       textinput.Model
	viewport    viewport.Model
	history     []exchange
	entries     []faq.Record
	showEntries bool
	topK        int
	pending     bool
	status      string
	ready       bool
}

// New creates a chat model backed by port.
func New(port FAQPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 500
	return Model{
		port:     port,
		input:    ti,
		viewport: viewport.New(0, 0),
		topK:     defaultTopK,
		status:   "Ready.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and response events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := historyBoxStyle.GetFrameSize()
		_, inputFrame := inputBoxStyle.GetFrameSize()
		reserved := 3 + inputFrame + 1 // header, settings, status, input
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-frame)
		m.refresh()
		return m, nil
	case answerMsg:
		m.pending = false
		ex := exchange{question: msg.question, err: msg.err}
		if msg.err == nil {
			ex.answer = msg.resp.Answer
			ex.faqs = msg.resp.FAQs
			ex.source = msg.resp.Source
			m.status = fmt.Sprintf("Answered from %s.", msg.resp.Source)
		} else {
			m.status = "Error: " + msg.err.Error()
		}
		m.history = append([]exchange{ex}, m.history...)
		m.refresh()
		return m, nil
	case entriesMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.showEntries = false
		} else {
			m.entries = msg.entries
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, m.ask(question, m.topK)
		case "ctrl+up":
			m.adjustTopK(1)
			return m, nil
		case "ctrl+down":
			m.adjustTopK(-1)
			return m, nil
		case "+", "-":
			if m.input.Value() == "" {
				if msg.String() == "+" {
					m.adjustTopK(1)
				} else {
					m.adjustTopK(-1)
				}
				return m, nil
			}
		case "ctrl+s":
			m.showEntries = !m.showEntries
			m.refresh()
			if m.showEntries && m.entries == nil {
				return m, m.loadEntries()
			}
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render("Course Platform FAQ Assistant")
	settings := mutedStyle.Render(fmt.Sprintf("top_k=%d  (ctrl+up/down or +/- to change, ctrl+s sample FAQs, ctrl+c quit)", m.topK))
	body := historyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + settings + "\n" + body + "\n" + input + "\n" + status
}

// TopK returns the number of FAQs requested per question.
func (m Model) TopK() int { return m.topK }

func (m *Model) adjustTopK(delta int) {
	next := m.topK + delta
	if next < minTopK {
		next = minTopK
	}
	if next > maxTopK {
		next = maxTopK
	}
	m.topK = next
}

func (m Model) ask(question string, topK int) tea.Cmd {
	port := m.port
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()
		resp, err := port.Ask(ctx, question, topK)
		return answerMsg{question: question, resp: resp, err: err}
	}
}

func (m Model) loadEntries() tea.Cmd {
	port := m.port
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()
		entries, err := port.Entries(ctx, entriesLimit)
		return entriesMsg{entries: entries, err: err}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoTop()
}

func (m Model) render() string {
	var b strings.Builder
	if m.showEntries {
		b.WriteString(titleStyle.Render("Sample FAQs"))
		b.WriteString("\n")
		if m.entries == nil {
			b.WriteString(mutedStyle.Render("loading..."))
			b.WriteString("\n")
		}
		for _, e := range m.entries {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", e.Question, e.Answer)
		}
		b.WriteString(strings.Repeat("─", max(10, m.viewport.Width-4)))
		b.WriteString("\n")
	}
	if len(m.history) == 0 {
		b.WriteString(mutedStyle.Render("No questions yet."))
		return b.String()
	}
	for _, ex := range m.history {
		b.WriteString(userStyle.Render("You: " + ex.question))
		b.WriteString("\n")
		if ex.err != nil {
			b.WriteString(errorStyle.Render("Error: " + ex.err.Error()))
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(assistantStyle.Render("Assistant: " + ex.answer))
		b.WriteString("\n")
		for i, r := range ex.faqs {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d. %s (distance %.3f)", i+1, r.Question, r.Distance)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle()
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
