package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/debate-arena/client-go/internal/audio"
	"github.com/debate-arena/client-go/internal/tui"
	"github.com/debate-arena/client-go/pkg/arena"
	"github.com/debate-arena/client-go/pkg/playback"
	"github.com/debate-arena/client-go/pkg/session"
	"github.com/debate-arena/client-go/pkg/voice"
)

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx := cmd.Context()

	api := arena.NewClient(viper.GetString("base_url"), arena.WithLogger(logger))

	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	health, err := api.Health(healthCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("backend unreachable at %s: %w", viper.GetString("base_url"), err)
	}
	logger.Info("backend healthy", "version", health.Version, "active_debates", health.ActiveDebates)

	info, needsStart, err := resolveSession(ctx, cmd, api)
	if err != nil {
		return err
	}

	// Voice pool: catalog file with hot reload when configured, otherwise the
	// built-in defaults.
	pool := voice.DefaultPool
	voicesFile := viper.GetString("voices_file")
	if voicesFile != "" {
		pool, err = voice.LoadCatalog(voicesFile)
		if err != nil {
			return fmt.Errorf("loading voice catalog: %w", err)
		}
	}
	allocator := voice.NewAllocator(pool, info.Language)
	if voicesFile != "" {
		catalog := voice.NewCatalog(voicesFile, allocator, logger)
		if err := catalog.Watch(); err != nil {
			logger.Warn("voice catalog watch failed, reload disabled", "error", err)
		} else {
			defer catalog.Close()
		}
	}

	var tts *audio.Synthesizer
	if ttsURL := viper.GetString("tts_url"); ttsURL != "" {
		tts = audio.NewSynthesizer(ttsURL, viper.GetString("tts_api_key"))
	}
	backend := audio.NewBackend(audio.Options{
		NoSpeaker: viper.GetBool("no_speaker"),
		TTS:       tts,
		Logger:    logger,
	})
	pipeline := playback.New(backend, logger)
	pipeline.SetGain(viper.GetFloat64("gain"))
	defer pipeline.Close()

	// Stop requests from the TUI go out over REST; the backend answers with a
	// stopped event on the stream.
	stopCh := make(chan struct{}, 1)
	stopFilter := func(_ tea.Model, msg tea.Msg) tea.Msg {
		if _, ok := msg.(tui.StopRequestedMsg); ok {
			select {
			case stopCh <- struct{}{}:
			default:
			}
		}
		return msg
	}
	program := tea.NewProgram(tui.NewModel(), tea.WithAltScreen(), tea.WithFilter(stopFilter))

	client := session.New(session.Config{
		WSURL:    viper.GetString("ws_url"),
		Voices:   allocator,
		Pipeline: pipeline,
		Logger:   logger,
		OnUpdate: func(snap session.Snapshot) {
			program.Send(tui.SnapshotMsg(snap))
		},
	})
	defer client.Close()

	go func() {
		for range stopCh {
			client.MarkStopping()
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := api.StopDebate(stopCtx, info.SessionID); err != nil {
				logger.Warn("stop request failed", "error", err)
			}
			cancel()
		}
	}()
	defer close(stopCh)

	// program.Send blocks until Run is consuming, so the session is brought
	// up on its own goroutine.
	go func() {
		client.Start()
		client.Attach(info)
		if !needsStart {
			return
		}
		startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := api.StartDebate(startCtx, info.SessionID); err != nil {
			logger.Error("starting debate failed", "error", err)
			program.Quit()
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// resolveSession creates a debate from the flags, or attaches to an existing
// one, and reports whether a start request is still needed.
func resolveSession(ctx context.Context, cmd *cobra.Command, api *arena.Client) (session.SessionInfo, bool, error) {
	debateID, _ := cmd.Flags().GetString("debate")
	template, _ := cmd.Flags().GetString("template")
	topic, _ := cmd.Flags().GetString("topic")
	rounds, _ := cmd.Flags().GetInt("rounds")

	reqCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch {
	case debateID != "":
		status, err := api.Status(reqCtx, debateID)
		if err != nil {
			return session.SessionInfo{}, false, fmt.Errorf("fetching debate %s: %w", debateID, err)
		}
		return statusToSessionInfo(status), !status.IsActive, nil

	case topic != "":
		positions, _ := cmd.Flags().GetStringArray("position")
		strictness, _ := cmd.Flags().GetString("strictness")
		req := arena.CustomCreateRequest{
			Topic:               topic,
			Positions:           parsePositions(positions),
			MaxRounds:           rounds,
			ModeratorStrictness: strictness,
		}
		debate, err := api.CreateCustomDebate(reqCtx, req)
		if err != nil {
			return session.SessionInfo{}, false, fmt.Errorf("creating custom debate: %w", err)
		}
		return debateToSessionInfo(debate), true, nil

	case template != "":
		debate, err := api.CreateDebate(reqCtx, arena.CreateRequest{Template: template, MaxRounds: rounds})
		if err != nil {
			return session.SessionInfo{}, false, fmt.Errorf("creating debate: %w", err)
		}
		return debateToSessionInfo(debate), true, nil

	default:
		return session.SessionInfo{}, false, fmt.Errorf("one of --template, --topic or --debate is required")
	}
}

// parsePositions splits repeated name[:stance] flags into position specs.
func parsePositions(raw []string) []arena.Position {
	positions := make([]arena.Position, 0, len(raw))
	for _, r := range raw {
		name, stance, _ := strings.Cut(r, ":")
		positions = append(positions, arena.Position{
			Name:   strings.TrimSpace(name),
			Stance: strings.TrimSpace(stance),
		})
	}
	return positions
}

func debateToSessionInfo(d *arena.Debate) session.SessionInfo {
	info := session.SessionInfo{
		SessionID: d.DebateID,
		Topic:     d.Topic,
		MaxRounds: d.MaxRounds,
		Language:  "en",
	}
	for _, deb := range d.Debaters {
		info.Participants = append(info.Participants, session.ParticipantInfo{
			ID:            deb.ID,
			DisplayName:   deb.Name,
			PositionLabel: deb.Position,
			Stance:        deb.Stance,
		})
	}
	return info
}

func statusToSessionInfo(s *arena.DebateStatus) session.SessionInfo {
	info := session.SessionInfo{
		SessionID: s.DebateID,
		Topic:     s.Topic,
		MaxRounds: s.TotalRounds,
		Language:  "en",
	}
	for _, deb := range s.Debaters {
		info.Participants = append(info.Participants, session.ParticipantInfo{
			ID:            deb.ID,
			DisplayName:   deb.Name,
			PositionLabel: deb.Position,
			Stance:        deb.Stance,
		})
	}
	return info
}
