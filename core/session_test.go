package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkrizanic/frontdesk-core/core/events"
	"github.com/dkrizanic/frontdesk-core/core/rooms"
	"github.com/dkrizanic/frontdesk-core/core/summaries"
)

type fakeRoom struct {
	mu         sync.Mutex
	options    rooms.JoinOptions
	joined     bool
	joinErr    error
	publishErr error
	published  [][]byte
	leaveCalls int
}

func (f *fakeRoom) Join(_ context.Context, _, _ string, opts ...rooms.JoinOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.joinErr != nil {
		return f.joinErr
	}
	options := rooms.JoinOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	f.options = options
	f.joined = true
	return nil
}

func (f *fakeRoom) PublishData(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeRoom) SendAudio([]byte) error { return nil }

func (f *fakeRoom) Leave(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaveCalls++
	f.joined = false
	return nil
}

func (f *fakeRoom) deliverData(payload string) {
	f.mu.Lock()
	callback := f.options.DataCallback
	f.mu.Unlock()
	if callback != nil {
		callback([]byte(payload))
	}
}

func (f *fakeRoom) deliverTranscription(texts []string, fromAgent bool) {
	f.mu.Lock()
	callback := f.options.TranscriptionCallback
	f.mu.Unlock()
	if callback == nil {
		return
	}
	segments := make([]rooms.TranscriptionSegment, 0, len(texts))
	for _, text := range texts {
		segments = append(segments, rooms.TranscriptionSegment{Text: text})
	}
	callback(segments, rooms.Participant{Identity: "p", IsAgent: fromAgent})
}

func (f *fakeRoom) dropConnection(reason string) {
	f.mu.Lock()
	callback := f.options.DisconnectedCallback
	f.mu.Unlock()
	if callback != nil {
		callback(reason)
	}
}

type fakeSummarizer struct {
	mu   sync.Mutex
	text string
	err  error
}

func (f *fakeSummarizer) Summarize(context.Context, []summaries.Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeSummarizer) set(text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text, f.err = text, err
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for condition")
}

func startLiveSession(t *testing.T, room *fakeRoom, clientOpts []ClientOption, startOpts ...StartOption) *Client {
	t.Helper()
	client := NewClient(room, clientOpts...)
	if err := client.Start(context.Background(), "lobby", startOpts...); err != nil {
		t.Fatalf("expected start to succeed: %v", err)
	}
	if got := client.Phase(); got != PhaseLive {
		t.Fatalf("expected live phase after start, got %q", got)
	}
	return client
}

func TestStartFailureSurfacesErrorAndStaysIdle(t *testing.T) {
	room := &fakeRoom{joinErr: errors.New("token service down")}
	client := NewClient(room)

	err := client.Start(context.Background(), "lobby")
	if err == nil {
		t.Fatalf("expected start to fail")
	}
	if got := client.Phase(); got != PhaseIdle {
		t.Fatalf("expected idle phase after failed start, got %q", got)
	}
}

func TestStartWhileActiveIsRejected(t *testing.T) {
	room := &fakeRoom{}
	client := startLiveSession(t, room, nil)

	if err := client.Start(context.Background(), "lobby"); err == nil {
		t.Fatalf("expected second start to be rejected")
	}
}

func TestTranscriptFlowsFromBothChannelsWithDedup(t *testing.T) {
	room := &fakeRoom{}
	client := startLiveSession(t, room, nil)

	room.deliverTranscription([]string{"I need an appointment"}, false)
	// The same utterance redundantly broadcast on the data channel.
	room.deliverData(`{"role":"user","text":"I need an appointment"}`)
	room.deliverData(`{"role":"agent","text":"Sure, when suits you?"}`)

	waitFor(t, func() bool { return len(client.Snapshot().Transcript) == 2 })

	transcript := client.Snapshot().Transcript
	if transcript[0].Speaker != events.SpeakerUser || transcript[0].Text != "I need an appointment" {
		t.Fatalf("unexpected first entry: %+v", transcript[0])
	}
	if transcript[1].Speaker != events.SpeakerAgent {
		t.Fatalf("unexpected second entry: %+v", transcript[1])
	}
}

func TestBookThenCancelLeavesSingleCancelledAppointment(t *testing.T) {
	room := &fakeRoom{}
	client := startLiveSession(t, room, nil)

	room.deliverData(`{"tool":"book_appointment","status":"success","data":{"id":1,"date":"2024-01-01","time":"10:00","status":"confirmed"}}`)
	room.deliverData(`{"tool":"cancel_appointment","status":"success","data":{"id":1}}`)

	waitFor(t, func() bool {
		appointments := client.Snapshot().Appointments
		return len(appointments) == 1 && appointments[0].Status == AppointmentCancelled
	})
}

func TestMalformedPayloadMidSessionIsAbsorbed(t *testing.T) {
	room := &fakeRoom{}
	client := startLiveSession(t, room, nil)

	room.deliverData(`{"tool": not even json`)
	room.deliverData(string([]byte{0xff, 0xfe}))
	room.deliverData(`{"role":"agent","text":"still here"}`)

	waitFor(t, func() bool { return len(client.Snapshot().Transcript) == 1 })

	if got := client.Phase(); got != PhaseLive {
		t.Fatalf("expected session to stay live, got %q", got)
	}
}

func TestRemoteCompletionWinsRace(t *testing.T) {
	room := &fakeRoom{}
	summariesSeen := make(chan *SummaryArtifact, 4)
	client := startLiveSession(t, room, nil,
		WithSummaryCallback(func(artifact *SummaryArtifact) { summariesSeen <- artifact }),
	)

	room.deliverData(`{"role":"user","text":"book me in for tomorrow"}`)
	waitFor(t, func() bool { return len(client.Snapshot().Transcript) == 1 })

	if err := client.End(context.Background()); err != nil {
		t.Fatalf("expected end to succeed: %v", err)
	}
	if got := client.Phase(); got != PhaseEnding {
		t.Fatalf("expected ending phase, got %q", got)
	}

	room.deliverData(`{"tool":"end_conversation","status":"success","data":{"duration_seconds":42,"summary_text":"Caller booked for tomorrow."}}`)

	waitFor(t, func() bool { return client.Phase() == PhaseSummarized })

	artifact := <-summariesSeen
	if artifact.SummaryText != "Caller booked for tomorrow." {
		t.Fatalf("expected remote payload to win, got %q", artifact.SummaryText)
	}
	if artifact.PendingSummary {
		t.Fatalf("expected remote artifact not to be flagged pending")
	}
	if artifact.Session.Duration != 42*time.Second {
		t.Fatalf("unexpected duration: %v", artifact.Session.Duration)
	}

	room.mu.Lock()
	leaveCalls := room.leaveCalls
	published := len(room.published)
	room.mu.Unlock()
	if leaveCalls != 1 {
		t.Fatalf("expected room to be left once, got %d", leaveCalls)
	}
	if published != 1 {
		t.Fatalf("expected one end_session control message, got %d", published)
	}

	select {
	case <-summariesSeen:
		t.Fatalf("expected exactly one summary")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTimeoutSynthesizesLocalSummary(t *testing.T) {
	room := &fakeRoom{}
	summariesSeen := make(chan *SummaryArtifact, 4)
	client := startLiveSession(t, room,
		[]ClientOption{WithTerminationTimeout(50 * time.Millisecond)},
		WithSummaryCallback(func(artifact *SummaryArtifact) { summariesSeen <- artifact }),
	)

	room.deliverData(`{"tool":"book_appointment","status":"success","data":{"id":3,"date":"2024-06-01","time":"09:00"}}`)
	room.deliverData(`{"role":"user","text":"thanks, goodbye"}`)
	waitFor(t, func() bool { return len(client.Snapshot().Transcript) == 1 })

	if err := client.End(context.Background()); err != nil {
		t.Fatalf("expected end to succeed: %v", err)
	}

	waitFor(t, func() bool { return client.Phase() == PhaseSummarized })

	artifact := <-summariesSeen
	if !artifact.PendingSummary {
		t.Fatalf("expected locally synthesized summary to be flagged pending")
	}
	if len(artifact.AppointmentsBooked) != 1 || artifact.AppointmentsBooked[0].ID != 3 {
		t.Fatalf("unexpected booked list: %+v", artifact.AppointmentsBooked)
	}
	if artifact.CostBreakdown == nil {
		t.Fatalf("expected local cost estimate")
	}

	// A straggling remote completion after the timeout must change nothing.
	room.deliverData(`{"tool":"end_conversation","status":"success","data":{"summary_text":"too late"}}`)
	time.Sleep(100 * time.Millisecond)

	if got := client.Summary(); got != artifact {
		t.Fatalf("expected artifact to be untouched by late remote completion")
	}
	select {
	case <-summariesSeen:
		t.Fatalf("expected exactly one summary")
	default:
	}
}

func TestFailedEndSignalStillArmsFallback(t *testing.T) {
	room := &fakeRoom{publishErr: errors.New("data channel closed")}
	client := startLiveSession(t, room,
		[]ClientOption{WithTerminationTimeout(50 * time.Millisecond)},
	)

	if err := client.End(context.Background()); err != nil {
		t.Fatalf("expected end to succeed despite failed send: %v", err)
	}

	waitFor(t, func() bool { return client.Phase() == PhaseSummarized })

	if artifact := client.Summary(); artifact == nil || !artifact.PendingSummary {
		t.Fatalf("expected a local summary, got %+v", artifact)
	}
}

func TestAgentInitiatedCompletionWhileLive(t *testing.T) {
	room := &fakeRoom{}
	client := startLiveSession(t, room, nil)

	room.deliverData(`{"tool":"end_conversation","status":"success","data":{"summary_text":"Agent wrapped up."}}`)

	waitFor(t, func() bool { return client.Phase() == PhaseSummarized })

	if got := client.Summary().SummaryText; got != "Agent wrapped up." {
		t.Fatalf("unexpected summary text: %q", got)
	}
}

func TestDisconnectWhileLiveAbandonsWithoutSummary(t *testing.T) {
	room := &fakeRoom{}
	disconnects := make(chan string, 1)
	client := startLiveSession(t, room, nil,
		WithDisconnectedCallback(func(reason string) { disconnects <- reason }),
	)

	room.dropConnection("network gone")

	waitFor(t, func() bool { return client.Phase() == PhaseIdle })

	if client.Summary() != nil {
		t.Fatalf("expected no summary for an abandoned session")
	}
	select {
	case reason := <-disconnects:
		if reason != "network gone" {
			t.Fatalf("unexpected reason: %q", reason)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for disconnect callback")
	}
}

func TestEndWithoutLiveSessionIsRejected(t *testing.T) {
	client := NewClient(&fakeRoom{})
	if err := client.End(context.Background()); err == nil {
		t.Fatalf("expected end without a live session to fail")
	}
}

func TestStartAfterSummarizedClearsState(t *testing.T) {
	room := &fakeRoom{}
	client := startLiveSession(t, room,
		[]ClientOption{WithTerminationTimeout(20 * time.Millisecond)},
	)

	room.deliverData(`{"role":"user","text":"hello"}`)
	waitFor(t, func() bool { return len(client.Snapshot().Transcript) == 1 })

	if err := client.End(context.Background()); err != nil {
		t.Fatalf("expected end to succeed: %v", err)
	}
	waitFor(t, func() bool { return client.Phase() == PhaseSummarized })

	if err := client.Start(context.Background(), "lobby"); err != nil {
		t.Fatalf("expected restart to succeed: %v", err)
	}

	snapshot := client.Snapshot()
	if len(snapshot.Transcript) != 0 || len(snapshot.Appointments) != 0 {
		t.Fatalf("expected a fresh aggregate, got %+v", snapshot)
	}
	if client.Summary() != nil {
		t.Fatalf("expected previous artifact to be cleared")
	}
}

func TestSummaryEnrichmentFillsTextAsynchronously(t *testing.T) {
	room := &fakeRoom{}
	summarizer := &fakeSummarizer{text: "Short friendly call."}
	summariesSeen := make(chan *SummaryArtifact, 4)
	client := startLiveSession(t, room,
		[]ClientOption{
			WithTerminationTimeout(20 * time.Millisecond),
			WithSummarizer(summarizer),
		},
		WithSummaryCallback(func(artifact *SummaryArtifact) { summariesSeen <- artifact }),
	)

	room.deliverData(`{"role":"user","text":"hello"}`)
	waitFor(t, func() bool { return len(client.Snapshot().Transcript) == 1 })

	if err := client.End(context.Background()); err != nil {
		t.Fatalf("expected end to succeed: %v", err)
	}

	first := <-summariesSeen
	if first.SummaryText != "" {
		t.Fatalf("expected initial local artifact without text")
	}

	select {
	case enriched := <-summariesSeen:
		if enriched.SummaryText != "Short friendly call." {
			t.Fatalf("unexpected enriched text: %q", enriched.SummaryText)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for enrichment")
	}
}

func TestRefreshSummaryRetriesAfterFailure(t *testing.T) {
	room := &fakeRoom{}
	summarizer := &fakeSummarizer{err: errors.New("summarizer down")}
	summariesSeen := make(chan *SummaryArtifact, 4)
	client := startLiveSession(t, room,
		[]ClientOption{
			WithTerminationTimeout(20 * time.Millisecond),
			WithSummarizer(summarizer),
		},
		WithSummaryCallback(func(artifact *SummaryArtifact) { summariesSeen <- artifact }),
	)

	room.deliverData(`{"role":"user","text":"hello"}`)
	waitFor(t, func() bool { return len(client.Snapshot().Transcript) == 1 })

	if err := client.End(context.Background()); err != nil {
		t.Fatalf("expected end to succeed: %v", err)
	}
	<-summariesSeen

	// First refresh still fails, second succeeds after the service recovers.
	if err := client.RefreshSummary(context.Background()); err == nil {
		t.Fatalf("expected refresh to fail while summarizer is down")
	}
	summarizer.set("Recovered summary.", nil)
	if err := client.RefreshSummary(context.Background()); err != nil {
		t.Fatalf("expected refresh to succeed: %v", err)
	}

	waitFor(t, func() bool {
		select {
		case artifact := <-summariesSeen:
			return artifact.SummaryText == "Recovered summary."
		default:
		}
		return false
	})
}

func TestTranscriptCallbackFiresPerAcceptedEntry(t *testing.T) {
	room := &fakeRoom{}
	entries := make(chan TranscriptEntry, 16)
	client := startLiveSession(t, room, nil,
		WithTranscriptCallback(func(entry TranscriptEntry) { entries <- entry }),
	)

	for i := 0; i < 3; i++ {
		room.deliverData(fmt.Sprintf(`{"role":"user","text":"message %d"}`, i))
	}
	// Duplicate of the last entry is suppressed and must not notify.
	room.deliverData(`{"role":"user","text":"message 2"}`)

	waitFor(t, func() bool { return len(client.Snapshot().Transcript) == 3 })

	count := 0
	timeout := time.After(200 * time.Millisecond)
	for {
		select {
		case <-entries:
			count++
		case <-timeout:
			if count != 3 {
				t.Fatalf("expected 3 transcript notifications, got %d", count)
			}
			return
		}
	}
}
