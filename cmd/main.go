package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/ai"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/config"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/conversation"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/fallback"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/health"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/logging"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/pipeline"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/realtime"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/session"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/telephony"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/upload"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/voice"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootLog := logging.New("info", false)
		bootLog.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	// --- Store ---
	store, closeStore := openStore(cfg, log)
	defer closeStore()

	// --- AI provider ---
	provider := ai.New(ai.Options{
		Mock:               cfg.Provider == config.ProviderMock,
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		Model:              cfg.OpenAI.Model,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
	}, log)

	// --- Pipeline ---
	registry := session.NewRegistry(store, log)
	recordings := voice.NewRecordingFetcher(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Timeout())
	turns := pipeline.New(pipeline.Deps{
		Sessions:    registry,
		Turns:       store,
		Transcriber: provider,
		Generator:   provider,
		Replier:     ai.NewKeywordReplier(cfg.Rules(), cfg.DegradeDefault),
		Audio:       recordings,
		Ladder:      fallback.New(cfg.Timeout(), log),
		Log:         log,
	})

	// --- Router ---
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// --- Telephony ---
	machine := voice.NewMachine(turns, registry, voice.Config{RestaurantID: cfg.Voice.RestaurantID}, log)
	renderer := voice.NewRenderer(voice.RendererConfig{
		Voice:         cfg.Voice.Voice,
		ActionPath:    cfg.Voice.ActionPath,
		RecordTimeout: cfg.Voice.RecordTimeoutS,
	})
	telephony.RegisterRoutes(r, telephony.NewHandler(machine, renderer,
		upload.NewHandler(turns, conversation.ChannelVoice, log), log))

	// --- Real-time chat ---
	hub := realtime.NewHub(turns, store, cfg.HTTP.AllowedOrigins, log)
	realtime.RegisterRoutes(r, hub, upload.NewHandler(turns, conversation.ChannelChat, log))

	// --- Conversations API ---
	conversation.RegisterRoutes(r, conversation.NewHandler(store, log))

	// --- health ---
	health.RegisterRoutes(r, health.NewHandler(map[string]health.Pinger{
		"database": store,
		"openai":   provider,
	}, cfg.Environment, log))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", srv.Addr).Str("provider", cfg.Provider).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

// openStore connects to postgres and migrates it, or falls back to memory
// when no DSN is configured.
func openStore(cfg *config.Config, log zerolog.Logger) (conversation.Store, func()) {
	if cfg.Store.Driver == config.StoreMemory {
		log.Info().Msg("using in-memory store")
		return conversation.NewMemoryStore(), func() {}
	}
	if cfg.Store.DSN == "" {
		log.Warn().Msg("DATABASE_URL is not set, using in-memory store")
		return conversation.NewMemoryStore(), func() {}
	}

	db, err := sql.Open("postgres", cfg.Store.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db open error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping error")
	}

	if err := conversation.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate error")
	}

	return conversation.NewPostgresStore(db), func() { _ = db.Close() }
}
