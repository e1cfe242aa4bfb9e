package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/reconecta/chat/backend/internal/model/chat"
	"github.com/reconecta/chat/backend/internal/model/persona"
	chatService "github.com/reconecta/chat/backend/internal/service/chat"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	botStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	chromeHeight  = 4
)

// Model is the terminal page of one conversation.
type Model struct {
	ctx     context.Context
	conv    *chatService.Conversation
	persona persona.Persona
	bridge  *Bridge
	detach  []func()

	viewport viewport.Model
	input    textinput.Model
	renderer *glamour.TermRenderer

	messages []chat.Message
	loading  bool
	status   string
}

// New builds the page for conv and subscribes it to the conversation store.
func New(ctx context.Context, conv *chatService.Conversation, p persona.Persona) Model {
	input := textinput.New()
	input.Placeholder = "Digite sua mensagem..."
	input.Prompt = "> "
	input.Focus()

	bridge := NewBridge()
	m := Model{
		ctx:      ctx,
		conv:     conv,
		persona:  p,
		bridge:   bridge,
		viewport: viewport.New(defaultWidth, defaultHeight-chromeHeight),
		input:    input,
		renderer: newRenderer(defaultWidth),
		messages: conv.Store().Snapshot(),
	}
	m.detach = []func(){
		chatService.NewViewSynchronizer(bridge).Attach(conv.Store()),
		conv.Controller.OnLoadingChange(bridge.loading),
	}
	m.viewport.SetContent(m.renderTranscript())
	return m
}

// Close detaches the page from the conversation.
func (m Model) Close() {
	for _, fn := range m.detach {
		fn()
	}
	m.bridge.Close()
}

func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bridge.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.renderer = newRenderer(msg.Width)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Close()
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case transcriptMsg:
		m.messages = msg
		m.viewport.SetContent(m.renderTranscript())
		return m, m.bridge.wait()

	case scrollMsg:
		m.viewport.GotoBottom()
		return m, m.bridge.wait()

	case loadingMsg:
		m.loading = bool(msg)
		if m.loading {
			m.status = ""
			m.input.Blur()
		} else {
			m.input.Focus()
		}
		return m, m.bridge.wait()

	case turnDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.loading {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// submit starts a turn with the typed text. The input is ignored while a
// reply is loading or when it holds only whitespace.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if m.loading || strings.TrimSpace(text) == "" {
		return m, nil
	}
	m.input.Reset()

	conv, ctx := m.conv, m.ctx
	return m, func() tea.Msg {
		return turnDoneMsg{err: conv.Send(ctx, text)}
	}
}

func (m Model) renderTranscript() string {
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Sender {
		case chat.SenderUser:
			b.WriteString(userStyle.Render("Você"))
			b.WriteString("\n")
			b.WriteString(msg.Text)
			b.WriteString("\n")
		default:
			b.WriteString(botStyle.Render(m.persona.Name))
			b.WriteString("\n")
			if msg.Text == "" {
				b.WriteString(mutedStyle.Render("digitando..."))
				b.WriteString("\n")
				continue
			}
			b.WriteString(m.renderMarkdown(msg.Text))
		}
	}
	return b.String()
}

func (m Model) renderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content + "\n"
		}
	}()

	if m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content + "\n"
}

func (m Model) View() string {
	header := headerStyle.Render(m.persona.Name) + "  " + titleStyle.Render(m.persona.Title)

	footer := m.input.View()
	switch {
	case m.status != "":
		footer = errorStyle.Render(m.status) + "\n" + footer
	case m.loading:
		footer = mutedStyle.Render(m.persona.Name+" está respondendo...") + "\n" + footer
	default:
		footer = "\n" + footer
	}

	return header + "\n" + m.viewport.View() + "\n" + footer
}
