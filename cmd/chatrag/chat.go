package main

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/a-h/chatrag/client"
	"github.com/a-h/chatrag/models"
	"github.com/google/uuid"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type ChatCommand struct {
	ServerURL    string `help:"The URL of the chat server." env:"CHATRAG_SERVER_URL" default:"http://localhost:9020"`
	ServerAPIKey string `help:"The API key for the chat server." env:"CHATRAG_SERVER_API_KEY" default:""`
	Conversation string `help:"The ID of the conversation to continue. A new conversation is started if not set." default:""`
	NoContext    bool   `help:"Do not use the conversation's documents as context."`
	TopK         int    `help:"The maximum number of chunks to use as context, zero for the server default." default:"0"`
	LogLevel     string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ChatCommand) Run(ctx context.Context) (err error) {
	rsc := client.New(c.ServerURL, c.ServerAPIKey)

	conversation := c.Conversation
	var msgs []models.ChatMessage
	if conversation == "" {
		conversation = uuid.NewString()
	} else {
		history, err := rsc.HistoryGet(ctx, conversation)
		if err != nil {
			return fmt.Errorf("failed to get conversation history: %w", err)
		}
		msgs = history.Messages
	}
	msgs = append(msgs, models.ChatMessage{
		Type:    models.ChatMessageTypeSystem,
		Content: "Conversation " + conversation,
	})

	toLLM := make(chan models.ChatMessage)
	fromLLM := make(chan []models.ChatMessage)
	errors := make(chan error)
	defer close(toLLM)

	go func() {
		for toSend := range toLLM {
			msgs = append(msgs, toSend)
			msgIndex := len(msgs)
			msgs = append(msgs, models.ChatMessage{
				Type:    models.ChatMessageTypeAI,
				Content: "",
			})

			buf := new(bytes.Buffer)
			f := func(ctx context.Context, chunk []byte) error {
				if _, err := buf.Write(chunk); err != nil {
					return err
				}
				msgs[msgIndex].Content = buf.String()
				fromLLM <- slices.Clone(msgs)
				return nil
			}
			sources, err := rsc.ChatPost(ctx, conversation, models.ChatPostRequest{
				Text:      toSend.Content,
				NoContext: c.NoContext,
				TopK:      c.TopK,
			}, f)
			if err != nil {
				errors <- err
				continue
			}
			if len(sources) > 0 {
				msgs = append(msgs, models.ChatMessage{
					Type:    models.ChatMessageTypeSystem,
					Content: "Sources: " + strings.Join(sources, ", "),
				})
				fromLLM <- slices.Clone(msgs)
			}
		}
	}()

	p := tea.NewProgram(newModel(ctx, msgs, toLLM, fromLLM, errors))
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

// Dracula color scheme.
var (
	Background  = lipgloss.Color("#282a36")
	CurrentLine = lipgloss.Color("#44475a")
	Selection   = lipgloss.Color("#44475a")
	Foreground  = lipgloss.Color("#f8f8f2")
	Comment     = lipgloss.Color("#6272a4")
	Cyan        = lipgloss.Color("#8be9fd")
	Green       = lipgloss.Color("#50fa7b")
	Orange      = lipgloss.Color("#ffb86c")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
	Yellow      = lipgloss.Color("#f1fa8c")
)

var headerStyle = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Margin(10).Padding(1).PaddingTop(0)

var header = `
 _______  __   __  _______  _______  _______  _______  _______ 
|       ||  | |  ||   _   ||       ||  _    ||       ||       |
|       ||  |_|  ||  |_|  ||_     _|| |_|   ||   _   ||_     _|
|       ||       ||       |  |   |  |       ||  | |  |  |   |  
|      _||       ||       |  |   |  |  _   | |  |_|  |  |   |  
|     |_ |   _   ||   _   |  |   |  | |_|   ||       |  |   |  
|_______||__| |__||__| |__|  |___|  |_______||_______|  |___|
`

type model struct {
	viewport viewport.Model
	textarea textarea.Model
	err      error
	ctx      context.Context

	// Chatbot interactions.
	toLLM   chan models.ChatMessage
	fromLLM chan []models.ChatMessage
	errors  chan error
}

func newModel(ctx context.Context, msgs []models.ChatMessage, toLLM chan models.ChatMessage, fromLLM chan []models.ChatMessage, errors chan error) model {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 280

	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent(headerStyle.Render(header) + "\n" + formatMessages(msgs))

	ta.KeyMap.InsertNewline.SetEnabled(false)

	return model{
		ctx:      ctx,
		textarea: ta,
		viewport: vp,
		err:      nil,
		fromLLM:  fromLLM,
		toLLM:    toLLM,
		errors:   errors,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.subscribeToFromLLM(),
		m.subscribeToErrors(),
	)
}

func (m model) subscribeToFromLLM() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.fromLLM:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) subscribeToErrors() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.errors:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

var messageTypeToStyle = map[models.ChatMessageType]lipgloss.Style{
	models.ChatMessageTypeSystem: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).MaxWidth(90).Background(Background).Foreground(Green),
	models.ChatMessageTypeHuman:  lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink),
	models.ChatMessageTypeAI:     lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Cyan),
}

var messageTypeToIcon = map[models.ChatMessageType]string{
	models.ChatMessageTypeSystem: "🤖",
	models.ChatMessageTypeHuman:  "🥷",
	models.ChatMessageTypeAI:     "✨",
}

func formatMessage(msg models.ChatMessage) string {
	style, ok := messageTypeToStyle[msg.Type]
	if !ok {
		return msg.Content
	}
	icon, ok := messageTypeToIcon[msg.Type]
	if !ok {
		icon = "🤷"
	}
	wrapped := wordwrap.String(strings.TrimSpace(icon+" "+msg.Content), 80)
	return style.Render(wrapped)
}

func formatMessages(msgs []models.ChatMessage) string {
	var sb strings.Builder
	for _, cm := range msgs {
		sb.WriteString(formatMessage(cm))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		return m, m.subscribeToErrors()
	case []models.ChatMessage:
		m.viewport.SetContent(formatMessages(msg))
		m.viewport.GotoBottom()
		return m, m.subscribeToFromLLM()
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 3
		m.textarea.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			// Quit.
			fmt.Println(m.textarea.Value())
			return m, tea.Quit
		case "enter":
			v := m.textarea.Value()

			if v == "" {
				// Don't send empty messages.
				return m, nil
			}

			m.textarea.Reset()
			m.err = nil
			return m, func() tea.Msg {
				m.toLLM <- models.ChatMessage{
					Type:    models.ChatMessageTypeHuman,
					Content: v,
				}
				return nil
			}
		default:
			// Send all other keypresses to the textarea.
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

	case cursor.BlinkMsg:
		// Textarea should also process cursor blinks.
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

var errorStyle = lipgloss.NewStyle().Foreground(Red)

func (m model) View() string {
	status := ""
	if m.err != nil {
		status = errorStyle.Render(m.err.Error())
	}
	return fmt.Sprintf("%s\n%s\n%s",
		m.viewport.View(),
		status,
		m.textarea.View(),
	) + "\n\n"
}
