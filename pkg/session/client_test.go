package session

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/debate-arena/client-go/pkg/playback"
	"github.com/debate-arena/client-go/pkg/voice"
)

// recordingBackend captures what the pipeline renders, in order.
type recordingBackend struct {
	mu     sync.Mutex
	spoken []spokenItem
	played [][]byte
}

type spokenItem struct {
	text  string
	voice voice.Handle
}

func (b *recordingBackend) Decode(_ context.Context, data []byte) (playback.AudioBuffer, error) {
	return playback.AudioBuffer(data), nil
}

func (b *recordingBackend) Play(_ context.Context, buf playback.AudioBuffer, _ float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.played = append(b.played, []byte(buf))
	return nil
}

func (b *recordingBackend) Synthesize(_ context.Context, text string, v voice.Handle, _ float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spoken = append(b.spoken, spokenItem{text: text, voice: v})
	return nil
}

func (b *recordingBackend) spokenItems() []spokenItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]spokenItem(nil), b.spoken...)
}

func (b *recordingBackend) playedBuffers() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.played...)
}

func waitForSnapshot(t *testing.T, updates <-chan Snapshot, ok func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap := <-updates:
			if ok(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot condition")
		}
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func newTestClient(t *testing.T, url string, backend playback.Backend) (*Client, chan Snapshot) {
	t.Helper()
	updates := make(chan Snapshot, 128)
	client := New(Config{
		WSURL:          url,
		Voices:         voice.NewAllocator(voice.DefaultPool, "en"),
		Pipeline:       playback.New(backend, nil),
		ReconnectDelay: 20 * time.Millisecond,
		PingInterval:   time.Hour,
		OnUpdate:       func(s Snapshot) { updates <- s },
	})
	t.Cleanup(client.Close)
	return client, updates
}

func TestClientDebateFlow(t *testing.T) {
	hold := make(chan struct{})
	url := wsTestServer(t, func(ws *websocket.Conn) {
		join, ok := readJoin(ws)
		if !ok || join.SessionID != "sess-e2e" {
			return
		}
		writeFrame(ws, map[string]any{"type": "joined", "session_id": "sess-e2e"})
		writeFrame(ws, map[string]any{"type": "event", "event": "started"})
		writeFrame(ws, map[string]any{"type": "event", "event": "phase_changed", "phase": "opening", "round": 1})
		writeFrame(ws, map[string]any{"type": "event", "event": "turn_started", "participant_id": "p-pro"})
		writeFrame(ws, map[string]any{
			"type": "event", "event": "turn_completed",
			"participant_id": "p-pro",
			"statement":      "Mandates work.",
		})
		writeFrame(ws, map[string]any{
			"type": "event", "event": "moderation",
			"message": "Opponent, your response.",
		})
		writeFrame(ws, map[string]any{"type": "event", "event": "ended", "closing_remarks": "That concludes the debate."})
		<-hold
	})
	defer close(hold)

	backend := &recordingBackend{}
	client, updates := newTestClient(t, url, backend)
	client.Start()
	info := testSessionInfo()
	info.SessionID = "sess-e2e"
	client.Attach(info)

	snap := waitForSnapshot(t, updates, func(s Snapshot) bool {
		return s.Status == StatusCompleted
	})

	if snap.Phase != PhaseFinished || snap.Round != 1 {
		t.Fatalf("final snapshot: phase=%q round=%d", snap.Phase, snap.Round)
	}
	if snap.ConnState != ConnOpen {
		t.Fatalf("final snapshot conn state = %q, want %q", snap.ConnState, ConnOpen)
	}
	// turn statement + moderation + closing remarks
	if len(snap.Transcript) != 3 {
		t.Fatalf("transcript = %d entries, want 3", len(snap.Transcript))
	}
	for i, entry := range snap.Transcript {
		if entry.SequenceNo != i+1 {
			t.Fatalf("entry %d sequence = %d", i, entry.SequenceNo)
		}
	}

	// Queued speech drains on natural completion: the statement and the
	// moderator line both reach the synthesizer.
	waitUntil(t, func() bool { return len(backend.spokenItems()) == 2 })
	spoken := backend.spokenItems()
	if spoken[0].text != "Mandates work." {
		t.Fatalf("first spoken = %q", spoken[0].text)
	}
	if spoken[0].voice.IsNone() {
		t.Fatal("participant speech rendered without an assigned voice")
	}
	if spoken[1].voice.VoiceID == spoken[0].voice.VoiceID && spoken[1].voice.Pitch == spoken[0].voice.Pitch {
		t.Fatal("moderator voice is indistinguishable from the participant voice")
	}

	// The allocated handle is visible on the participant panel.
	if snap.Participants[0].Voice.IsNone() {
		t.Fatal("participant voice handle not recorded in snapshot")
	}
}

func TestClientStoppedCutsPlayback(t *testing.T) {
	hold := make(chan struct{})
	url := wsTestServer(t, func(ws *websocket.Conn) {
		if _, ok := readJoin(ws); !ok {
			return
		}
		writeFrame(ws, map[string]any{"type": "event", "event": "started"})
		writeFrame(ws, map[string]any{"type": "event", "event": "stopped"})
		<-hold
	})
	defer close(hold)

	backend := &recordingBackend{}
	client, updates := newTestClient(t, url, backend)
	client.Start()
	client.Attach(testSessionInfo())

	waitForSnapshot(t, updates, func(s Snapshot) bool {
		return s.Status == StatusStopped
	})
	waitUntil(t, func() bool {
		return client.pipeline.QueueLen() == 0 && !client.pipeline.Speaking()
	})
}

func TestClientRendersAudioFrames(t *testing.T) {
	payload := []byte("pcm-bytes")
	hold := make(chan struct{})
	url := wsTestServer(t, func(ws *websocket.Conn) {
		if _, ok := readJoin(ws); !ok {
			return
		}
		writeFrame(ws, map[string]any{"type": "event", "event": "started"})
		writeFrame(ws, map[string]any{
			"type":      "audio",
			"audio_b64": base64.StdEncoding.EncodeToString(payload),
			"meta":      map[string]any{"participant_id": "p-con", "text": "Markets outperform."},
		})
		<-hold
	})
	defer close(hold)

	backend := &recordingBackend{}
	client, _ := newTestClient(t, url, backend)
	client.Start()
	client.Attach(testSessionInfo())

	waitUntil(t, func() bool { return len(backend.playedBuffers()) == 1 })
	if got := string(backend.playedBuffers()[0]); got != string(payload) {
		t.Fatalf("played buffer = %q, want %q", got, payload)
	}
	if len(backend.spokenItems()) != 0 {
		t.Fatal("pre-rendered audio must not be synthesized")
	}
}
