package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"healthqa/internal/chat"
	"healthqa/internal/domain"
)

const (
	title       = "Türkçe Hasta-Doktor Sağlık Asistanı"
	caption     = "Bu chatbot, doktorların verdiği kanıtlara dayalı olarak yanıt üretir. Lütfen tıbbi tavsiye almadığınızı unutmayın."
	placeholder = "Örn: Baş ağrısı için ne zaman doktora gitmeliyim?"
	workingText = "İlgili doktor cevapları taranıyor ve yanıt oluşturuluyor..."
)

// Info describes the loaded index for the header line.
type Info struct {
	Backend   string
	Dimension int
	Documents int
}

type turnDoneMsg struct {
	result chat.TurnResult
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	session     *chat.Session
	info        Info
	turnTimeout time.Duration

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	busy     bool
	pending  string
	errText  string
	ready    bool
}

// New creates the chat view. A zero turnTimeout leaves turns unbounded.
func New(session *chat.Session, info Info, turnTimeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	vp := viewport.New(0, 0)
	return Model{session: session, info: info, turnTimeout: turnTimeout, input: ti, viewport: vp, spinner: sp}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and turn completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := historyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 3 + 1 + ih + 1 // title, caption, header + status + input + spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			// one turn at a time
			if m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.busy = true
			m.pending = q
			m.errText = ""
			m.input.Reset()
			m.refresh()
			return m, tea.Batch(m.turn(q), m.spinner.Tick)
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	case turnDoneMsg:
		m.busy = false
		m.pending = ""
		m.errText = msg.result.ErrorText()
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// turn runs the RAG turn off the UI goroutine.
func (m Model) turn(q string) tea.Cmd {
	session, timeout := m.session, m.turnTimeout
	return func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return turnDoneMsg{result: session.Turn(ctx, q)}
	}
}

// View renders the header, the transcript and the input line.
func (m Model) View() string {
	if !m.ready {
		return "Yükleniyor..."
	}
	head := titleStyle.Render(title) + "\n" +
		captionStyle.Render(caption) + "\n" +
		headerStyle.Render(fmt.Sprintf("Veritabanı: %s | Vektör Boyutu: %d | Belge Sayısı: %s",
			m.info.Backend, m.info.Dimension, formatCount(m.info.Documents)))
	var status string
	switch {
	case m.busy:
		status = m.spinner.View() + " " + workingText
	case m.errText != "":
		status = errorStyle.Render(m.errText)
	}
	return head + "\n" + historyBoxStyle.Render(m.viewport.View()) + "\n" + status + "\n" + inputBoxStyle.Render(m.input.View())
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	history := m.session.History()
	// the turn appends the user message concurrently; show it once
	if m.busy && (len(history) == 0 || history[len(history)-1].Role != domain.RoleUser) {
		history = append(history, domain.Message{Role: domain.RoleUser, Content: m.pending})
	}
	if len(history) == 0 {
		return captionStyle.Render("Henüz mesaj yok.")
	}
	width := max(10, m.viewport.Width-2)
	blocks := make([]string, 0, len(history))
	for _, msg := range history {
		label := assistantLabel
		if msg.Role == domain.RoleUser {
			label = userLabel
		}
		body := lipgloss.NewStyle().Width(width).Render(msg.Content)
		blocks = append(blocks, label+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

// formatCount groups thousands with dots: 332036 -> 332.036.
func formatCount(n int) string {
	s := fmt.Sprint(n)
	if n < 0 {
		return s
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	captionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userLabel       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true).Render("Siz")
	assistantLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true).Render("Asistan")
)
