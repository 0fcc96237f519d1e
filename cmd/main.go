package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/Vovarama1992/scene_narrator/internal/ai"
	"github.com/Vovarama1992/scene_narrator/internal/audio"
	"github.com/Vovarama1992/scene_narrator/internal/camera"
	"github.com/Vovarama1992/scene_narrator/internal/config"
	"github.com/Vovarama1992/scene_narrator/internal/delivery"
	"github.com/Vovarama1992/scene_narrator/internal/domain"
	"github.com/Vovarama1992/scene_narrator/internal/error_notificator"
	"github.com/Vovarama1992/scene_narrator/internal/imageproc"
	"github.com/Vovarama1992/scene_narrator/internal/infra"
	"github.com/Vovarama1992/scene_narrator/internal/ports"
	"github.com/Vovarama1992/scene_narrator/internal/speech"
	"github.com/Vovarama1992/scene_narrator/internal/textrules"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {

	// =========================================================================
	// ENV / LOGGER
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	sugar := baseLogger.Sugar()
	zl := logger.NewZapLogger(sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// DB (optional)
	// =========================================================================

	var (
		db              *sql.DB
		descriptionRepo ports.DescriptionRepo
		rulesRepo       textrules.Repo
	)

	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()

		dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.PingContext(dbCtx); err != nil {
			log.Fatalf("db ping failed: %v", err)
		}
		if err := infra.MigrateDescriptions(dbCtx, db); err != nil {
			log.Fatalf("migrate description_records: %v", err)
		}
		if err := textrules.Migrate(dbCtx, db); err != nil {
			log.Fatalf("migrate text rules: %v", err)
		}
		cancel()

		descriptionRepo = infra.NewDescriptionRepo(db)
		rulesRepo = textrules.NewRepo(db)
	} else {
		sugar.Infow("DATABASE_URL not set, descriptions will not be persisted")
	}

	// =========================================================================
	// INFRASTRUCTURE
	// =========================================================================

	var s3Service ports.S3Service
	if cfg.S3.Enabled() {
		s3Ctx, cancel := context.WithTimeout(ctx, cfg.S3.Timeout)
		s3Client, err := infra.NewS3Client(s3Ctx, cfg.S3)
		cancel()
		if err != nil {
			log.Fatalf("failed to init s3: %v", err)
		}
		s3Service = domain.NewS3Service(s3Client, cfg.S3.Timeout)
	}

	audioStore, err := audio.NewStore(cfg.Audio.Dir, cfg.Audio.TTL, sugar)
	if err != nil {
		log.Fatalf("audio store: %v", err)
	}

	// =========================================================================
	// ERROR NOTIFICATION
	// =========================================================================

	var errInfra error_notificator.Notificator
	if cfg.Telegram.Enabled() {
		tg, err := error_notificator.NewTelegramInfra(cfg.Telegram.Token, cfg.Telegram.AdminChatID)
		if err != nil {
			sugar.Warnw("telegram notifications disabled", "error", err)
		} else {
			errInfra = tg
		}
	}
	errService := error_notificator.NewService(errInfra, sugar)

	// =========================================================================
	// CLIENTS (VISION / TTS)
	// =========================================================================

	visionClient := ai.NewOpenAIClient(cfg.Inference.BaseURL, cfg.Inference.APIKey)
	describer := ai.NewDescriber(visionClient, cfg.Inference.Model, cfg.Inference.Timeout, sugar)

	var (
		ttsClient speech.TTSClient
		voices    speech.Voices
	)
	switch cfg.TTS.Provider {
	case config.TTSProviderElevenLabs:
		ttsClient = speech.NewElevenLabsClient(cfg.TTS.ElevenLabsKey, cfg.TTS.ElevenLabsBaseURL)
		voices = speech.Voices{
			speech.VoiceDefault:    cfg.TTS.ElevenLabsVoice,
			speech.VoiceGoodPerson: cfg.TTS.ElevenLabsAltVoice,
		}
	case config.TTSProviderOpenAI:
		ttsClient = ai.NewOpenAIClient(cfg.TTS.OpenAIBaseURL, cfg.TTS.OpenAIKey)
		voices = speech.Voices{
			speech.VoiceDefault:    cfg.TTS.OpenAIVoice,
			speech.VoiceGoodPerson: cfg.TTS.OpenAIAltVoice,
		}
	default:
		ttsClient = speech.NewGoogleClient(cfg.TTS.Lang, cfg.TTS.GoogleBaseURL)
		voices = speech.Voices{
			speech.VoiceDefault:    "com",
			speech.VoiceGoodPerson: "co.uk",
		}
	}

	speechService := speech.NewService(ttsClient, voices, textrules.NewService(rulesRepo), cfg.TTS.Timeout, sugar)
	cameraClient := camera.NewClient(cfg.Camera.URL, cfg.Camera.Timeout, cfg.Camera.MaxBytes, sugar)

	// =========================================================================
	// SERVICES
	// =========================================================================

	narrationService := domain.NewNarrationService(domain.NarrationDeps{
		Camera:         cameraClient,
		Normalizer:     imageproc.Normalizer{CameraRotation: cfg.Camera.RotateDegrees},
		Describer:      describer,
		Speech:         speechService,
		Store:          audioStore,
		S3:             s3Service,
		Repo:           descriptionRepo,
		Notifier:       errService,
		PerRequestURLs: cfg.Audio.PerRequestURLs,
		Log:            sugar,
	})

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	describeDelivery := domain.DeliveryLocal
	if cfg.Audio.Delivery == config.DeliveryCloud {
		describeDelivery = domain.DeliveryCloud
	}

	narrationHandler := delivery.NewNarrationHandler(narrationService, audioStore, describeDelivery, zl)
	var rulesHandler *delivery.TextRuleHandler
	if rulesRepo != nil {
		rulesHandler = delivery.NewTextRuleHandler(rulesRepo)
	}
	r := delivery.NewRouter(narrationHandler, rulesHandler, cfg.RateLimitPerMinute)

	// =========================================================================
	// BACKGROUND JOBS
	// =========================================================================

	gcEvery := cfg.Audio.TTL / 2
	if gcEvery > time.Minute {
		gcEvery = time.Minute
	}
	if gcEvery < time.Second {
		gcEvery = time.Second
	}
	go audioStore.Run(gcEvery)
	defer audioStore.Stop()

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("shutdown", "error", err)
		}
	}()

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "listening at " + addr,
		Service: "scene_narrator",
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}

	narrationService.Wait()
}
