package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"photoquest/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	AppVersion  string
	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration

	MigrateOnStart bool

	UploadDir      string
	MaxUploadBytes int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsURL string

	AdminBotToken   string
	AdminChatIDs    []int64 // comma separated in env
	AdminBotActorID int64   // admin user id recorded for decisions made in Telegram

	AllowedOrigins []string

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse(os.Getenv)
	if err != nil {
		logger.Fatal(err.Error())
	}
	return cfg
}

// Parse builds a Config from a lookup function.
func Parse(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	jwtSecret := getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	port := getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	version := getenv("APP_VERSION")
	if version == "" {
		version = "dev"
	}

	uploadDir := getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}

	var chatIDs []int64
	if s := getenv("ADMIN_CHAT_IDS"); s != "" {
		for _, idStr := range strings.Split(s, ",") {
			idStr = strings.TrimSpace(idStr)
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				chatIDs = append(chatIDs, id)
			}
		}
	}

	var origins []string
	if s := getenv("ALLOWED_ORIGINS"); s != "" {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	var actorID int64
	if s := getenv("ADMIN_BOT_ACTOR_ID"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
			actorID = id
		}
	}

	logFormat := getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "text"
	}

	return &Config{
		AppPort:         port,
		AppVersion:      version,
		DatabaseURL:     dbURL,
		JWTSecret:       jwtSecret,
		JWTTTL:          time.Duration(intEnv(getenv, "JWT_TTL_HOURS", 24)) * time.Hour,
		MigrateOnStart:  getenv("MIGRATE_ON_START") == "true",
		UploadDir:       uploadDir,
		MaxUploadBytes:  int64(intEnv(getenv, "MAX_UPLOAD_MB", 5)) << 20,
		RedisAddr:       getenv("REDIS_ADDR"),
		RedisPassword:   getenv("REDIS_PASSWORD"),
		RedisDB:         intEnv(getenv, "REDIS_DB", 0),
		NatsURL:         getenv("NATS_URL"),
		AdminBotToken:   getenv("ADMIN_BOT_TOKEN"),
		AdminChatIDs:    chatIDs,
		AdminBotActorID: actorID,
		AllowedOrigins:  origins,
		APIRateLimit:    intEnv(getenv, "API_RATE_LIMIT", 300),
		APIRateWindow:   time.Duration(intEnv(getenv, "API_RATE_WINDOW_SECONDS", 60)) * time.Second,
		AuthRateLimit:   intEnv(getenv, "AUTH_RATE_LIMIT", 10),
		AuthRateWindow:  time.Duration(intEnv(getenv, "AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
		LogLevel:        getenv("LOG_LEVEL"),
		LogFormat:       logFormat,
	}, nil
}

// intEnv returns the positive integer in key or def. REDIS_DB may be 0.
func intEnv(getenv func(string) string, key string, def int) int {
	v := getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (n == 0 && key != "REDIS_DB") {
		return def
	}
	return n
}
