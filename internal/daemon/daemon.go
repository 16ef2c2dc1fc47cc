package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/reminisce-ai/reminisce/internal/api"
	"github.com/reminisce-ai/reminisce/internal/gateway"
	"github.com/reminisce-ai/reminisce/internal/identity"
	"github.com/reminisce-ai/reminisce/internal/infra/sqlite"
	"github.com/reminisce-ai/reminisce/internal/provider"
)

// Run builds the full service from config and serves HTTP until the
// process receives SIGINT/SIGTERM.
func Run(cfg Config) error {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "reminisce").Logger()

	if cfg.Auth.SigningKey == "" {
		return fmt.Errorf("REMINISCE_TOKEN_KEY is required to sign session tokens")
	}
	if cfg.Providers.Gemini.APIKey == "" {
		log.Warn().Msg("GOOGLE_API_KEY not set; story and soundscape generation are disabled")
	}
	if cfg.Providers.Stability.APIKey == "" {
		log.Warn().Msg("STABILITY_API_KEY not set; artistic image generation is disabled")
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		return err
	}
	defer db.Close()

	ident, err := identity.New(db, identity.Config{
		SigningKey:      []byte(cfg.Auth.SigningKey),
		TokenTTL:        cfg.TokenTTL(),
		StartingCredits: cfg.Auth.StartingCredits,
	})
	if err != nil {
		return err
	}

	gemini := provider.NewGemini(provider.GeminiConfig{
		APIKey:  cfg.Providers.Gemini.APIKey,
		Model:   cfg.Providers.Gemini.Model,
		Timeout: time.Duration(cfg.Providers.Gemini.TimeoutSec) * time.Second,
	})
	tts := provider.NewTTS(provider.TTSConfig{
		Language: cfg.Providers.TTS.Language,
	})
	restyle := provider.NewStability(provider.StabilityConfig{
		APIKey:         cfg.Providers.Stability.APIKey,
		Engine:         cfg.Providers.Stability.Engine,
		PromptTemplate: cfg.Providers.Stability.PromptTemplate,
		ImageStrength:  cfg.Providers.Stability.ImageStrength,
		CFGScale:       cfg.Providers.Stability.CFGScale,
		Steps:          cfg.Providers.Stability.Steps,
		MaxEdge:        cfg.Providers.Stability.MaxEdge,
		Timeout:        time.Duration(cfg.Providers.Stability.TimeoutSec) * time.Second,
	})

	gw, err := gateway.New(ident, db, log,
		restyle,
		provider.NewStory(gemini, cfg.Providers.Gemini.StoryPrompt),
		provider.NewSoundscape(gemini, tts, cfg.Providers.Gemini.SoundscapePrompt),
	)
	if err != nil {
		return err
	}

	server := api.NewServer(ident, db, gw, log)
	if cfg.API.EnableMetrics {
		server.EnableMetrics()
	}

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("reminisce listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	// In-flight generations may take minutes; give them time to settle.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}
