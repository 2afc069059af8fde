package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

type stubPort struct {
	askCalls     int
	lastQuestion string
	lastTopK     int
	askErr       error
	entries      []faq.Record
	entryCalls   int
}

func (s *stubPort) Ask(_ context.Context, question string, topK int) (faq.AskResponse, error) {
	s.askCalls++
	s.lastQuestion = question
	s.lastTopK = topK
	if s.askErr != nil {
		return faq.AskResponse{}, s.askErr
	}
	return faq.AskResponse{
		Question: question,
		Answer:   "answer to " + question,
		FAQs:     []faq.RetrievalResult{{ID: 2, Question: "What is the refund policy?", Distance: 0.1}},
		Source:   "llm",
	}, nil
}

func (s *stubPort) Entries(_ context.Context, limit int) ([]faq.Record, error) {
	s.entryCalls++
	if len(s.entries) > limit {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func sized(t *testing.T, port FAQPort) Model {
	t.Helper()
	next, _ := New(port).Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelAsksWithCurrentTopK(t *testing.T) {
	port := &stubPort{}
	m := sized(t, port)
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlUp})
	m.input.SetValue("Can I get my money back?")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.True(t, m.pending)
	require.Empty(t, m.input.Value())

	next, _ := m.Update(cmd())
	m = next.(Model)
	require.Equal(t, 1, port.askCalls)
	require.Equal(t, "Can I get my money back?", port.lastQuestion)
	require.Equal(t, 4, port.lastTopK)
	require.False(t, m.pending)
	require.Len(t, m.history, 1)
	require.Contains(t, m.View(), "What is the refund policy?")
}

func TestModelHistoryNewestFirst(t *testing.T) {
	port := &stubPort{}
	m := sized(t, port)
	for _, q := range []string{"first", "second"} {
		m.input.SetValue(q)
		var cmd tea.Cmd
		m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
		next, _ := m.Update(cmd())
		m = next.(Model)
	}
	require.Len(t, m.history, 2)
	require.Equal(t, "second", m.history[0].question)
	require.Equal(t, "first", m.history[1].question)
}

func TestModelIgnoresBlankQuestion(t *testing.T) {
	m := sized(t, &stubPort{})
	m.input.SetValue("   ")
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
}

func TestModelRecordsAskError(t *testing.T) {
	port := &stubPort{askErr: &APIError{Status: 503, Code: "service_unavailable", Message: "model down"}}
	m := sized(t, port)
	m.input.SetValue("hello")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	next, _ := m.Update(cmd())
	m = next.(Model)
	require.Error(t, m.history[0].err)
	require.Contains(t, m.status, "service_unavailable")
}

func TestModelTopKBounds(t *testing.T) {
	m := sized(t, &stubPort{})
	require.Equal(t, defaultTopK, m.TopK())
	for i := 0; i < 10; i++ {
		m, _ = press(t, m, runes("+"))
	}
	require.Equal(t, maxTopK, m.TopK())
	for i := 0; i < 10; i++ {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlDown})
	}
	require.Equal(t, minTopK, m.TopK())
}

func TestModelPlusTypesWhenInputNotEmpty(t *testing.T) {
	m := sized(t, &stubPort{})
	m.input.SetValue("c")
	m.input.CursorEnd()
	m, _ = press(t, m, runes("+"))
	require.Equal(t, defaultTopK, m.TopK())
	require.Equal(t, "c+", m.input.Value())
}

func TestModelToggleEntriesLoadsOnce(t *testing.T) {
	port := &stubPort{entries: []faq.Record{{ID: 1, Question: "How do I reset my password?", Answer: "Use the link."}}}
	m := sized(t, port)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.True(t, m.showEntries)
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(Model)
	require.Contains(t, m.View(), "How do I reset my password?")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.False(t, m.showEntries)
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Nil(t, cmd)
	require.Equal(t, 1, port.entryCalls)
}

func TestModelEntriesErrorHidesPanel(t *testing.T) {
	m := sized(t, &stubPort{})
	m.showEntries = true
	next, _ := m.Update(entriesMsg{err: errors.New("boom")})
	m = next.(Model)
	require.False(t, m.showEntries)
	require.Contains(t, m.status, "boom")
}

func TestModelQuitKeys(t *testing.T) {
	m := sized(t, &stubPort{})
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}
