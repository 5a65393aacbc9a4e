// Command frontdesk is a terminal client for talking to the front desk
// agent: it joins a room, renders the live transcript and tool activity,
// and shows the session summary once the call wraps up.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	session "github.com/dkrizanic/frontdesk-core/core"
	"github.com/dkrizanic/frontdesk-core/core/audio"
	"github.com/dkrizanic/frontdesk-core/core/audio/miniaudio"
	"github.com/dkrizanic/frontdesk-core/core/events"
	"github.com/dkrizanic/frontdesk-core/core/rooms/gateway"
	"github.com/dkrizanic/frontdesk-core/core/summaries"
	"github.com/dkrizanic/frontdesk-core/core/summaries/llm"
	"github.com/dkrizanic/frontdesk-core/core/summaries/remote"
)

type appConfig struct {
	serverURL      string
	roomName       string
	identity       string
	micEnabled     bool
	altScreen      bool
	endTimeout     time.Duration
	summarySource  string
	summaryModel   string
	summaryBaseURL string
}

func parseFlags() appConfig {
	cfg := appConfig{}
	flag.StringVar(&cfg.serverURL, "server", "http://localhost:3111", "room service base URL")
	flag.StringVar(&cfg.roomName, "room", "front-desk", "room to join")
	flag.StringVar(&cfg.identity, "identity", "", "participant identity (random when empty)")
	flag.BoolVar(&cfg.micEnabled, "mic", false, "capture microphone audio and play agent audio")
	flag.BoolVar(&cfg.altScreen, "alt-screen", true, "render in the terminal's alternate screen")
	flag.DurationVar(&cfg.endTimeout, "end-timeout", 10*time.Second, "how long to wait for the agent's summary before synthesizing one")
	flag.StringVar(&cfg.summarySource, "summary-source", "remote", "fallback summary source: remote, llm or none")
	flag.StringVar(&cfg.summaryModel, "summary-model", "llama3.1-8b", "model for -summary-source=llm")
	flag.StringVar(&cfg.summaryBaseURL, "summary-url", "", "override endpoint for the summary source")
	flag.Parse()
	return cfg
}

func buildSummarizer(cfg appConfig) summaries.Summarizer {
	switch cfg.summarySource {
	case "llm":
		apiKey := os.Getenv("CEREBRAS_API_KEY")
		if apiKey == "" {
			return nil
		}
		opts := []llm.Option{}
		if cfg.summaryBaseURL != "" {
			opts = append(opts, llm.WithBaseURL(cfg.summaryBaseURL))
		}
		return llm.NewClient(apiKey, cfg.summaryModel, opts...)
	case "remote":
		baseURL := cfg.summaryBaseURL
		if baseURL == "" {
			baseURL = cfg.serverURL
		}
		return remote.NewClient(baseURL)
	}
	return nil
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	agentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type transcriptMsg session.TranscriptEntry
type toolCallMsg session.ToolCallRecord
type phaseMsg session.Phase
type summaryMsg struct{ artifact *session.SummaryArtifact }
type disconnectMsg struct{ reason string }
type errMsg struct{ err error }
type startedMsg struct{}

type model struct {
	cfg    appConfig
	client *session.Client
	device audio.Device

	phase    session.Phase
	lines    []string
	artifact *session.SummaryArtifact
	lastErr  string

	spinner  spinner.Model
	viewport viewport.Model
	ready    bool
	width    int
}

func newModel(cfg appConfig, client *session.Client, device audio.Device) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return model{
		cfg:     cfg,
		client:  client,
		device:  device,
		phase:   session.PhaseIdle,
		spinner: s,
		width:   80,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) startSession(program func(tea.Msg)) tea.Cmd {
	return func() tea.Msg {
		opts := []session.StartOption{
			session.WithTranscriptCallback(func(entry session.TranscriptEntry) {
				program(transcriptMsg(entry))
			}),
			session.WithToolCallCallback(func(record session.ToolCallRecord) {
				program(toolCallMsg(record))
			}),
			session.WithPhaseChangedCallback(func(phase session.Phase) {
				program(phaseMsg(phase))
			}),
			session.WithSummaryCallback(func(artifact *session.SummaryArtifact) {
				program(summaryMsg{artifact: artifact})
			}),
			session.WithDisconnectedCallback(func(reason string) {
				program(disconnectMsg{reason: reason})
			}),
		}
		if m.cfg.identity != "" {
			opts = append(opts, session.WithIdentity(m.cfg.identity))
		}
		if m.device != nil {
			opts = append(opts, session.WithAudioCallback(func(frame []byte) {
				_ = m.device.Play(frame)
			}))
		}

		if err := m.client.Start(context.Background(), m.cfg.roomName, opts...); err != nil {
			return errMsg{err: err}
		}
		if m.device != nil {
			if err := m.device.StartCapture(func(frame []byte) {
				_ = m.client.SendAudio(frame)
			}); err != nil {
				return errMsg{err: fmt.Errorf("microphone unavailable: %w", err)}
			}
		}
		return startedMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.client.Reset()
			if m.device != nil {
				_ = m.device.Close()
			}
			return m, tea.Quit
		case "s":
			if m.phase == session.PhaseIdle || m.phase == session.PhaseSummarized {
				m.lines = nil
				m.artifact = nil
				m.lastErr = ""
				m.syncViewport()
				return m, m.startSession(programSend)
			}
		case "e":
			if m.phase == session.PhaseLive {
				if err := m.client.End(context.Background()); err != nil {
					m.lastErr = err.Error()
				}
			}
		case "r":
			m.client.Reset()
			if m.device != nil {
				_ = m.device.StopCapture()
				m.device.Flush()
			}
			m.lines = nil
			m.artifact = nil
			m.lastErr = ""
			m.syncViewport()
		case "g":
			if m.artifact != nil && m.artifact.SummaryText == "" {
				client := m.client
				return m, func() tea.Msg {
					if err := client.RefreshSummary(context.Background()); err != nil {
						return errMsg{err: err}
					}
					return nil
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := msg.Height - 6
		if height < 3 {
			height = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.syncViewport()

	case startedMsg:
		m.phase = m.client.Phase()

	case transcriptMsg:
		entry := session.TranscriptEntry(msg)
		style := userStyle
		label := "you"
		if entry.Speaker == events.SpeakerAgent {
			style = agentStyle
			label = "agent"
		}
		m.lines = append(m.lines, style.Render(label+": ")+entry.Text)
		m.syncViewport()

	case toolCallMsg:
		record := session.ToolCallRecord(msg)
		line := fmt.Sprintf("[%s %s]", record.Tool, record.Status)
		if record.Message != "" {
			line = fmt.Sprintf("[%s %s] %s", record.Tool, record.Status, record.Message)
		}
		m.lines = append(m.lines, toolStyle.Render(line))
		m.syncViewport()

	case phaseMsg:
		m.phase = session.Phase(msg)

	case summaryMsg:
		m.artifact = msg.artifact
		m.phase = m.client.Phase()
		if m.device != nil {
			_ = m.device.StopCapture()
			m.device.Flush()
		}

	case disconnectMsg:
		m.phase = m.client.Phase()
		m.lastErr = "disconnected: " + msg.reason
		if m.device != nil {
			_ = m.device.StopCapture()
		}

	case errMsg:
		m.lastErr = msg.err.Error()
		m.phase = m.client.Phase()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) syncViewport() {
	if !m.ready {
		return
	}
	wrapped := make([]string, 0, len(m.lines))
	for _, line := range m.lines {
		wrapped = append(wrapped, wordwrap.String(line, m.viewport.Width))
	}
	m.viewport.SetContent(strings.Join(wrapped, "\n"))
	m.viewport.GotoBottom()
}

func (m model) statusLine() string {
	switch m.phase {
	case session.PhaseConnecting:
		return m.spinner.View() + " connecting"
	case session.PhaseLive:
		return "● live"
	case session.PhaseEnding:
		return m.spinner.View() + " waiting for the agent to wrap up"
	case session.PhaseSummarized:
		return "call finished"
	}
	return "idle"
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("front desk") + "  " + statusStyle.Render(m.statusLine()) + "\n\n")

	if m.ready {
		b.WriteString(m.viewport.View() + "\n")
	}

	if m.artifact != nil {
		b.WriteString(summaryStyle.Render(renderSummary(m.artifact, m.width-4)) + "\n")
	}
	if m.lastErr != "" {
		b.WriteString(errorStyle.Render(m.lastErr) + "\n")
	}

	b.WriteString(helpStyle.Render("s start · e end call · g regenerate summary · r reset · q quit"))
	return b.String()
}

func renderSummary(artifact *session.SummaryArtifact, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Session summary") + "\n")
	b.WriteString(fmt.Sprintf("duration: %s\n", artifact.Session.Duration.Round(time.Second)))
	if artifact.User != nil {
		b.WriteString(fmt.Sprintf("caller: %s %s\n", artifact.User.Name, artifact.User.Phone))
	}
	for _, appointment := range artifact.AppointmentsBooked {
		b.WriteString(fmt.Sprintf("booked: %s %s (%s)\n", appointment.Date, appointment.Time, appointment.Purpose))
	}
	for _, appointment := range artifact.AppointmentsCancelled {
		b.WriteString(fmt.Sprintf("cancelled: %s %s\n", appointment.Date, appointment.Time))
	}
	if artifact.CostBreakdown != nil {
		b.WriteString(fmt.Sprintf("estimated cost: $%.4f\n", artifact.CostBreakdown.Total))
	}
	switch {
	case artifact.SummaryText != "":
		b.WriteString("\n" + wordwrap.String(artifact.SummaryText, width))
	case artifact.PendingSummary:
		b.WriteString("\n" + statusStyle.Render("summary text pending, press g to generate"))
	}
	return b.String()
}

// programSend is filled in once the bubbletea program exists so session
// callbacks can deliver messages into the update loop.
var programSend func(tea.Msg)

func main() {
	cfg := parseFlags()

	room := gateway.NewClient(cfg.serverURL)

	clientOpts := []session.ClientOption{
		session.WithTerminationTimeout(cfg.endTimeout),
	}
	if summarizer := buildSummarizer(cfg); summarizer != nil {
		clientOpts = append(clientOpts, session.WithSummarizer(summarizer))
	}
	client := session.NewClient(room, clientOpts...)

	var device audio.Device
	if cfg.micEnabled {
		miniaudioDevice, err := miniaudio.NewDevice()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open audio device: %v\n", err)
			os.Exit(1)
		}
		device = miniaudioDevice
	}

	programOpts := []tea.ProgramOption{}
	if cfg.altScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	program := tea.NewProgram(newModel(cfg, client, device), programOpts...)
	programSend = program.Send

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
