package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quest-board-service/internal/app"
	"quest-board-service/internal/domain"
	"quest-board-service/internal/metrics"
	transport "quest-board-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quest board server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, catalogPath)
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML mission catalogue for in-memory mode")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag, catalogPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	b, err := buildBackends(ctx, cfg, catalogPath, log)
	if err != nil {
		return err
	}
	defer b.Close()

	calendar, err := domain.NewCalendar(cfg.Event.Timezone, cfg.Event.StartDate, cfg.Event.MaxDays)
	if err != nil {
		return err
	}
	m := metrics.New("quest_board")

	engine := app.NewEngine(app.EngineDeps{
		Boards:   b.boards,
		Items:    b.items,
		Pool:     b.pool,
		Events:   b.events,
		Calendar: calendar,
		Logger:   log.WithField("component", "engine"),
		Metrics:  m,
	}, app.EngineConfig{
		BoardSize:  cfg.Game.BoardSize,
		BonusLevel: cfg.Game.BonusLevel,
		AutoBonus:  cfg.Game.AutoBonus,
	})
	intake := app.NewProofIntake(app.ProofIntakeDeps{
		Boards:    b.boards,
		Items:     b.items,
		Artifacts: b.artifacts,
		Events:    b.events,
		Logger:    log.WithField("component", "proofs"),
		Metrics:   m,
	}, app.ProofLimits{ImageMaxBytes: cfg.Game.ImageMaxBytes, VideoMaxBytes: cfg.Game.VideoMaxBytes})

	mux := http.NewServeMux()
	transport.NewHandler(engine, intake, b.events, log.WithField("component", "http"), m).Routes(mux)
	if b.memArtifacts != nil {
		mux.HandleFunc("GET /proofs/{path...}", transport.ProofFiles(b.memArtifacts))
	}

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           transport.LogRequests(log, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// no WriteTimeout: board feeds are long-lived websockets
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quest board service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions is the built-in catalogue used when neither postgres nor
// --catalog is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "rhythm-1", Track: "rhythm", Level: 1, Text: "Clap along with a stranger's beat", Active: true},
		{ID: "rhythm-2", Track: "rhythm", Level: 1, Text: "Find the loudest drum on the playa", Active: true},
		{ID: "rhythm-3", Track: "rhythm", Level: 2, Text: "Learn a rhythm from another camp", Active: true},
		{ID: "rhythm-4", Track: "rhythm", Level: 2, Text: "Dance until the song ends", Active: true},
		{ID: "rhythm-5", Track: "rhythm", Level: 3, Text: "Lead a drum circle for one round", Active: true},
		{ID: "community-1", Track: "community", Level: 1, Text: "Share water with a neighbour", Active: true},
		{ID: "community-2", Track: "community", Level: 1, Text: "Trade a handmade gift", Active: true},
		{ID: "community-3", Track: "community", Level: 2, Text: "Help build another camp's shade", Active: true},
		{ID: "community-4", Track: "community", Level: 2, Text: "Cook a meal for strangers", Active: true},
		{ID: "community-5", Track: "community", Level: 3, Text: "Host a workshop at your camp", Active: true},
	}
}
