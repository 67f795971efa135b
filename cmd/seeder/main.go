// Seeder inserts a demo card with publish channels and uploads its PNG to
// the asset store, for exercising the delivery pipeline locally:
//
//	go run ./cmd/seeder -owner <uuid> -channels <uuid>,<uuid> -in 2m \
//	    -message "see you there" -image ./card.png
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cardloop/card-courier/internal/assetstore"
	"github.com/cardloop/card-courier/internal/config"
	"github.com/cardloop/card-courier/internal/db"
	"github.com/cardloop/card-courier/internal/domain"
	"github.com/cardloop/card-courier/internal/repository"
)

func main() {
	var (
		owner    = flag.String("owner", "", "owner user id (uuid, required)")
		channels = flag.String("channels", "", "comma-separated channel ids (required)")
		in       = flag.Duration("in", time.Minute, "schedule the card this far in the future")
		message  = flag.String("message", "", "optional card message")
		image    = flag.String("image", "", "path to the card PNG (required)")
	)
	flag.Parse()

	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ownerID, err := uuid.Parse(*owner)
	if err != nil {
		logger.Fatal("invalid -owner", zap.Error(err))
	}
	var channelIDs []uuid.UUID
	for _, raw := range strings.Split(*channels, ",") {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			logger.Fatal("invalid -channels entry", zap.String("entry", raw), zap.Error(err))
		}
		channelIDs = append(channelIDs, id)
	}
	if len(channelIDs) == 0 {
		logger.Fatal("at least one channel id is required")
	}
	data, err := os.ReadFile(*image)
	if err != nil {
		logger.Fatal("failed to read -image", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, "migrations"); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	s3Client, err := assetstore.NewS3Client(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create S3 client", zap.Error(err))
	}
	assets := assetstore.NewS3Store(s3Client, cfg.S3Bucket)
	repo := repository.NewPgCardRepository(pool)

	cardID := uuid.New()
	params := domain.SaveCardParams{
		ID:          cardID,
		OwnerID:     ownerID,
		ScheduledAt: time.Now().UTC().Add(*in),
		Channels:    channelIDs,
	}
	if *message != "" {
		params.Message = message
	}

	if err := repo.SaveCard(ctx, params); err != nil {
		logger.Fatal("failed to save card", zap.Error(err))
	}
	if err := assets.SavePNG(ctx, cardID, data); err != nil {
		logger.Fatal("failed to upload card image", zap.Error(err))
	}

	logger.Info("card seeded",
		zap.String("card_id", cardID.String()),
		zap.Time("scheduled_at", params.ScheduledAt),
		zap.Int("channels", len(channelIDs)),
	)
}
