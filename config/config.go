package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/eventure/eventure-go/media"
	"github.com/eventure/eventure-go/store"
	"github.com/eventure/eventure-go/utils"
)

// Config wires the Mongo client, the media adapter and both stores.
// Controllers receive it and nothing else.
type Config struct {
	Port           string
	AllowedOrigins []string
	JWTSecret      string

	MongoClient *mongo.Client
	DBName      string

	Media    media.Storage
	Events   *store.EventStore
	Feedback *store.FeedbackStore
}

// Load reads the environment (a .env file is honored when present),
// connects to Mongo, ensures indexes and constructs the stores.
func Load(ctx context.Context, log *slog.Logger) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      envDefault("PORT", "5000"),
		DBName:    envDefault("DB_NAME", "eventure"),
		JWTSecret: os.Getenv("JWT_SECRET"),
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	origins := envDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is not set")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, mongooptions.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	cfg.MongoClient = client

	db := client.Database(cfg.DBName)
	if err := store.EnsureIndexes(connectCtx, db); err != nil {
		return nil, err
	}

	cld, err := media.NewCloudinary(
		os.Getenv("CLOUDINARY_CLOUD_NAME"),
		os.Getenv("CLOUDINARY_API_KEY"),
		os.Getenv("CLOUDINARY_API_SECRET"),
		log,
	)
	if err != nil {
		return nil, err
	}
	cfg.Media = cld

	mode := store.ParsePolicyMode(os.Getenv("FEEDBACK_POLICY"))
	cfg.Events = store.NewEventStore(db, cld, utils.SendEmail, log)
	cfg.Feedback = store.NewFeedbackStore(db, cld, mode, log)

	log.Info("configuration loaded", "db", cfg.DBName, "feedback_policy", string(mode))
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
