// Package session implements the client-side engine for a real-time voice
// session with the appointment agent: it joins a room, folds the
// transcription stream and the data-channel tool results into one session
// aggregate, and guarantees that an ended session produces exactly one
// summary artifact.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dkrizanic/frontdesk-core/core/events"
	"github.com/dkrizanic/frontdesk-core/core/rooms"
	"github.com/dkrizanic/frontdesk-core/core/summaries"
)

// Client drives one voice session at a time against the room service.
//
// All state mutation is serialized through a single event loop; transport
// callbacks only enqueue. Accessors return copies and are safe from any
// goroutine.
type Client struct {
	room               rooms.Client
	summarizer         summaries.Summarizer
	terminationTimeout time.Duration

	mu       sync.RWMutex
	phase    Phase
	state    sessionState
	artifact *SummaryArtifact

	startOptions StartOptions
	baseContext  context.Context

	events     chan events.Event
	loopOnce   sync.Once
	terminator *terminator
}

// NewClient creates a session client on top of the given room connection.
func NewClient(room rooms.Client, opts ...ClientOption) *Client {
	c := &Client{
		room:               room,
		terminationTimeout: defaultTerminationTimeout,
		phase:              PhaseIdle,
		baseContext:        context.Background(),
		events:             make(chan events.Event, 256),
	}
	c.terminator = newTerminator(c.finalize)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Phase returns the current lifecycle phase.
func (c *Client) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Snapshot returns a point-in-time copy of session state.
func (c *Client) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.snapshot(c.phase)
}

// Summary returns the terminal artifact, or nil before resolution.
func (c *Client) Summary() *SummaryArtifact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.artifact
}

// Start requests credentials, joins the named room and moves the session
// to Live. Any credential or join failure returns the session to Idle and
// is surfaced to the caller. Starting over a finished (Summarized) session
// begins a fresh aggregate with no carryover.
func (c *Client) Start(ctx context.Context, roomName string, opts ...StartOption) error {
	ctx, span := tracer.Start(ctx, "start session")
	defer span.End()

	options := StartOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Identity == "" {
		options.Identity = "visitor-" + uuid.NewString()
	}

	c.mu.Lock()
	switch c.phase {
	case PhaseIdle, PhaseSummarized:
	default:
		c.mu.Unlock()
		return fmt.Errorf("session already active in phase %q", c.phase)
	}
	c.state = sessionState{}
	c.artifact = nil
	c.startOptions = options
	c.baseContext = ctx
	c.setPhaseLocked(PhaseConnecting)
	c.mu.Unlock()

	c.loopOnce.Do(func() { go c.run() })

	err := c.room.Join(ctx, roomName, options.Identity,
		rooms.WithDataCallback(func(payload []byte) {
			c.events <- events.DecodeData(payload)
		}),
		rooms.WithTranscriptionCallback(func(segments []rooms.TranscriptionSegment, participant rooms.Participant) {
			texts := make([]string, 0, len(segments))
			for _, segment := range segments {
				texts = append(texts, segment.Text)
			}
			for _, event := range events.FromTranscription(texts, participant.IsAgent) {
				c.events <- event
			}
		}),
		rooms.WithAudioCallback(func(frame []byte) {
			if options.AudioCallback != nil {
				options.AudioCallback(frame)
			}
		}),
		rooms.WithDisconnectedCallback(func(reason string) {
			c.events <- events.NewRoomDisconnected(reason)
		}),
	)
	if err != nil {
		c.mu.Lock()
		c.setPhaseLocked(PhaseIdle)
		c.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to join room: %w", err)
	}

	c.mu.Lock()
	c.state.sessionStart = time.Now()
	c.setPhaseLocked(PhaseLive)
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.abandon("context cancelled")
	}()

	return nil
}

// End signals the agent to wrap up and arms the fallback timer. The
// session resolves to Summarized through whichever of the agent's
// end_conversation result or the timer fires first. A failed control send
// is reported through telemetry but still leaves the fallback armed; the
// agent may have received the signal anyway.
func (c *Client) End(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseLive {
		c.mu.Unlock()
		return fmt.Errorf("no live session to end, phase is %q", c.phase)
	}
	c.setPhaseLocked(PhaseEnding)
	c.mu.Unlock()

	payload, err := events.EncodeControl(events.EndSessionAction)
	if err == nil {
		err = c.room.PublishData(ctx, payload)
	}
	if err != nil {
		recordedErr := fmt.Errorf("failed to send end signal: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		logger.WarnContext(ctx, "end signal failed, waiting for fallback timeout", "error", err)
	}

	c.terminator.Arm(c.terminationTimeout)
	return nil
}

// Reset abandons whatever is in flight and returns the client to Idle.
func (c *Client) Reset() {
	c.terminator.Disarm()

	c.mu.Lock()
	active := c.phase == PhaseLive || c.phase == PhaseEnding
	c.state = sessionState{}
	c.artifact = nil
	c.setPhaseLocked(PhaseIdle)
	c.mu.Unlock()

	if active {
		if err := c.room.Leave(context.Background()); err != nil {
			logger.Warn("failed to leave room on reset", "error", err)
		}
	}
}

// SendAudio forwards one captured audio frame to the room while the
// session is live.
func (c *Client) SendAudio(frame []byte) error {
	c.mu.RLock()
	live := c.phase == PhaseLive
	c.mu.RUnlock()

	if !live {
		return fmt.Errorf("no live session")
	}
	return c.room.SendAudio(frame)
}

// RefreshSummary retries summary enrichment for an artifact whose text is
// still missing.
func (c *Client) RefreshSummary(ctx context.Context) error {
	c.mu.RLock()
	artifact := c.artifact
	var filled bool
	if artifact != nil {
		filled = artifact.SummaryText != ""
	}
	c.mu.RUnlock()

	if artifact == nil {
		return fmt.Errorf("no summary to refresh")
	}
	if filled {
		return nil
	}
	if c.summarizer == nil {
		return fmt.Errorf("no summarizer configured")
	}

	text, err := c.summarizer.Summarize(ctx, toSummaryTurns(artifact.Transcript))
	if err != nil {
		return fmt.Errorf("failed to generate summary: %w", err)
	}

	c.mu.Lock()
	artifact.SummaryText = text
	summaryCallback := c.startOptions.SummaryCallback
	c.mu.Unlock()

	if summaryCallback != nil {
		summaryCallback(artifact)
	}
	return nil
}

func (c *Client) run() {
	for event := range c.events {
		for _, notify := range c.handleEvent(event) {
			notify()
		}
	}
}

// handleEvent is the single reducer entry point: every mutation of the
// session aggregate happens here or in finalize. It returns the
// notifications to fire once the lock is released.
func (c *Client) handleEvent(event events.Event) []func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var notifications []func()

	switch t := event.(type) {
	case events.TranscriptFragment:
		if c.phase != PhaseLive && c.phase != PhaseEnding {
			return nil
		}
		if appendTranscript(&c.state, t.Speaker, t.Text, t.Timestamp()) {
			if callback := c.startOptions.TranscriptCallback; callback != nil {
				entry := c.state.transcripts[len(c.state.transcripts)-1]
				notifications = append(notifications, func() { callback(entry) })
			}
		}

	case events.ToolResult:
		if c.phase != PhaseLive && c.phase != PhaseEnding {
			return nil
		}

		record := recordToolCall(&c.state, t)
		if callback := c.startOptions.ToolCallCallback; callback != nil {
			notifications = append(notifications, func() { callback(record) })
		}

		// The agent sometimes speaks through tool result messages too.
		if t.Status == events.StatusSuccess && t.Tool == events.ToolEndConversation {
			notifications = append(notifications, c.completionSignalLocked(t)...)
			return notifications
		}

		if reduceToolResult(&c.state, t) == reduceUnknownAppointment {
			logger.Warn("tool result referenced unknown appointment", "tool", string(t.Tool))
		}

	case events.RoomDisconnected:
		switch c.phase {
		case PhaseLive:
			// Abandonment: no summary is synthesized for a session that
			// dropped without a graceful end.
			c.setPhaseLocked(PhaseIdle)
			if callback := c.startOptions.DisconnectedCallback; callback != nil {
				reason := t.Reason
				notifications = append(notifications, func() { callback(reason) })
			}
		case PhaseEnding:
			// The fallback timer still resolves the session locally.
			logger.Warn("room dropped while ending, waiting for local summary", "reason", t.Reason)
		}

	case events.Unrecognized:
		// Malformed payloads are dropped without touching state.
	}

	return notifications
}

// completionSignalLocked handles a successful end_conversation result.
// During Ending it feeds the termination race; while still Live, the agent
// ended the conversation on its own and the payload resolves immediately.
func (c *Client) completionSignalLocked(result events.ToolResult) []func() {
	switch c.phase {
	case PhaseEnding:
		payload := result.Data
		return []func(){func() { c.terminator.ResolveRemote(payload) }}
	case PhaseLive:
		c.setPhaseLocked(PhaseEnding)
		payload := result.Data
		return []func(){func() { c.finalize(resolution{remote: true, payload: payload}) }}
	}
	return nil
}

// finalize resolves the session to Summarized with exactly one artifact.
// It is reached from the terminator only, which already guarantees a
// single resolution; the phase check is a second guard for late calls
// after a reset.
func (c *Client) finalize(res resolution) {
	endedAt := time.Now()

	c.mu.Lock()
	if c.phase != PhaseEnding {
		c.mu.Unlock()
		return
	}

	if res.remote {
		c.artifact = buildRemoteArtifact(&c.state, res.payload, endedAt)
	} else {
		c.artifact = buildLocalArtifact(&c.state, endedAt)
	}
	artifact := c.artifact
	c.setPhaseLocked(PhaseSummarized)

	summaryCallback := c.startOptions.SummaryCallback
	needsEnrichment := artifact.SummaryText == "" && c.summarizer != nil
	c.mu.Unlock()

	if err := c.room.Leave(context.Background()); err != nil {
		logger.Warn("failed to leave room after session end", "error", err)
	}

	if summaryCallback != nil {
		summaryCallback(artifact)
	}

	if needsEnrichment {
		go c.enrichSummary(artifact)
	}
}

// enrichSummary fills SummaryText after resolution. Failures are logged
// and leave the artifact valid; RefreshSummary retries on demand.
func (c *Client) enrichSummary(artifact *SummaryArtifact) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	text, err := c.summarizer.Summarize(ctx, toSummaryTurns(artifact.Transcript))
	if err != nil {
		logger.Warn("summary enrichment failed", "error", err)
		return
	}

	c.mu.Lock()
	if artifact.SummaryText == "" {
		artifact.SummaryText = text
	}
	summaryCallback := c.startOptions.SummaryCallback
	c.mu.Unlock()

	if summaryCallback != nil {
		summaryCallback(artifact)
	}
}

// abandon drops an in-flight session without producing a summary.
func (c *Client) abandon(reason string) {
	c.mu.Lock()
	if c.phase != PhaseConnecting && c.phase != PhaseLive {
		c.mu.Unlock()
		return
	}
	c.setPhaseLocked(PhaseIdle)
	callback := c.startOptions.DisconnectedCallback
	c.mu.Unlock()

	c.terminator.Disarm()
	if err := c.room.Leave(context.Background()); err != nil {
		logger.Warn("failed to leave room on abandon", "error", err)
	}
	if callback != nil {
		callback(reason)
	}
}

func (c *Client) setPhaseLocked(phase Phase) {
	if c.phase == phase {
		return
	}
	c.phase = phase
	if callback := c.startOptions.PhaseChangedCallback; callback != nil {
		go callback(phase)
	}
}

func toSummaryTurns(transcript []TranscriptEntry) []summaries.Turn {
	turns := make([]summaries.Turn, 0, len(transcript))
	for _, entry := range transcript {
		turns = append(turns, summaries.Turn{Role: string(entry.Speaker), Text: entry.Text})
	}
	return turns
}
