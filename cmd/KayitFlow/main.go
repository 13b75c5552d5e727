package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/api"
	"github.com/KayitWorks/KayitFlow/internal/genai"
	"github.com/KayitWorks/KayitFlow/internal/lockfile"
	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/KayitWorks/KayitFlow/internal/session"
	"github.com/KayitWorks/KayitFlow/internal/store"
	"github.com/KayitWorks/KayitFlow/internal/util"
	"github.com/KayitWorks/KayitFlow/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for KayitFlow state data
	DefaultStateDir = "/var/lib/kayitflow"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "kayitflow.db"
	// DefaultWhatsmeowDBFileName is the default SQLite filename for whatsmeow device state
	DefaultWhatsmeowDBFileName = "whatsmeow.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()

	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// One instance per state directory; two processes sharing a whatsmeow
	// device database corrupt the session.
	lock, err := lockfile.AcquireLock(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire state directory lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	runCfg := api.RunOpts{
		Messenger:   *flags.messenger,
		FlowVariant: models.FlowVariant(*flags.flowVariant),
		MaxAttempts: *flags.maxAttempts,
		DigestCron:  *flags.digestCron,
		AdminPhone:  *flags.adminPhone,
	}
	waOpts := buildWhatsAppOptions(flags)
	sessionOpts := buildSessionOptions(flags)
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping KayitFlow with configured modules")
	slog.Debug("Module options counts", "whatsapp", len(waOpts), "session", len(sessionOpts), "store", len(storeOpts), "genai", len(genaiOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "flow", *flags.flowVariant)
	if err := api.Run(runCfg, waOpts, sessionOpts, storeOpts, genaiOpts, apiOpts); err != nil {
		slog.Error("KayitFlow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("KayitFlow exited successfully")
}

// Config holds environment configuration
type Config struct {
	Messenger     string
	FlowVariant   string
	MaxAttempts   int
	WhatsAppDSN   string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
	StateDir      string
	OpenAIKey     string
	APIAddr       string
	VerifyToken   string
	DigestCron    string
	AdminPhone    string
}

// Flags holds command line flag values
type Flags struct {
	qrOutput    *string
	numeric     *bool
	messenger   *string
	flowVariant *string
	maxAttempts *int
	stateDir    *string
	dbDSN       *string
	waDSN       *string
	redisAddr   *string
	redisPass   *string
	sessionTTL  *time.Duration
	openaiKey   *string
	apiAddr     *string
	verifyToken *string
	digestCron  *string
	adminPhone  *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		Messenger:     os.Getenv("MESSENGER"),
		FlowVariant:   os.Getenv("FLOW_VARIANT"),
		MaxAttempts:   util.ParseIntEnv("MAX_ATTEMPTS", models.DefaultMaxAttempts),
		WhatsAppDSN:   os.Getenv("WHATSAPP_DB_DSN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		SessionTTL:    util.ParseDurationEnv("SESSION_TTL", session.DefaultTTL),
		StateDir:      os.Getenv("KAYITFLOW_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		APIAddr:       os.Getenv("API_ADDR"),
		VerifyToken:   os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		DigestCron:    os.Getenv("DIGEST_SCHEDULE"),
		AdminPhone:    os.Getenv("ADMIN_PHONE"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No KAYITFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Default to the shared database URL when no WhatsApp-specific DSN is set
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = config.DatabaseURL
	}
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, DefaultWhatsmeowDBFileName)
		slog.Debug("No WhatsApp DSN provided, defaulting to SQLite", "sqlite_path", config.WhatsAppDSN)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"MESSENGER", config.Messenger,
		"FLOW_VARIANT", config.FlowVariant,
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"REDIS_ADDR_SET", config.RedisAddr != "",
		"KAYITFLOW_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"WEBHOOK_VERIFY_TOKEN_SET", config.VerifyToken != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		qrOutput:    flag.String("qr-output", "", "path to write login QR code"),
		numeric:     flag.Bool("numeric-code", false, "use numeric login code instead of QR code"),
		messenger:   flag.String("messenger", config.Messenger, "messaging backend: whatsmeow or twilio (overrides $MESSENGER)"),
		flowVariant: flag.String("flow", config.FlowVariant, "conversation flow variant: basic or wizard (overrides $FLOW_VARIANT)"),
		maxAttempts: flag.Int("max-attempts", config.MaxAttempts, "invalid answers allowed per question (overrides $MAX_ATTEMPTS)"),
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for KayitFlow data (overrides $KAYITFLOW_STATE_DIR)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN for the completion store (overrides $DATABASE_URL)"),
		waDSN:       flag.String("wa-db-dsn", config.WhatsAppDSN, "database DSN for whatsmeow device state (overrides $WHATSAPP_DB_DSN)"),
		redisAddr:   flag.String("redis-addr", config.RedisAddr, "Redis address for session storage (overrides $REDIS_ADDR)"),
		redisPass:   flag.String("redis-password", config.RedisPassword, "Redis password (overrides $REDIS_PASSWORD)"),
		sessionTTL:  flag.Duration("session-ttl", config.SessionTTL, "idle session lifetime (overrides $SESSION_TTL)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		verifyToken: flag.String("verify-token", config.VerifyToken, "webhook verification token (overrides $WEBHOOK_VERIFY_TOKEN)"),
		digestCron:  flag.String("digest-cron", config.DigestCron, "cron expression for the daily registration digest (overrides $DIGEST_SCHEDULE)"),
		adminPhone:  flag.String("admin-phone", config.AdminPhone, "recipient phone for the registration digest (overrides $ADMIN_PHONE)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"messenger", *flags.messenger,
		"flow", *flags.flowVariant,
		"maxAttempts", *flags.maxAttempts,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"redisAddr_set", *flags.redisAddr != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr)

	// Follow a moved state directory when the DSN still points at the default
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}
	if *flags.waDSN == config.WhatsAppDSN && config.WhatsAppDSN == filepath.Join(config.StateDir, DefaultWhatsmeowDBFileName) && *flags.stateDir != config.StateDir {
		*flags.waDSN = filepath.Join(*flags.stateDir, DefaultWhatsmeowDBFileName)
		slog.Debug("Updated whatsmeow DSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildWhatsAppOptions constructs WhatsApp configuration options
func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var waOpts []whatsapp.Option
	if *flags.qrOutput != "" {
		waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		waOpts = append(waOpts, whatsapp.WithNumericCode())
	}
	if *flags.waDSN != "" {
		waOpts = append(waOpts, whatsapp.WithDBDSN(*flags.waDSN))
	}
	return waOpts
}

// buildSessionOptions constructs session store configuration options
func buildSessionOptions(flags Flags) []session.Option {
	var sessionOpts []session.Option
	if *flags.redisAddr != "" {
		sessionOpts = append(sessionOpts, session.WithRedisAddr(*flags.redisAddr))
	}
	if *flags.redisPass != "" {
		sessionOpts = append(sessionOpts, session.WithRedisPassword(*flags.redisPass))
	}
	if *flags.sessionTTL > 0 {
		sessionOpts = append(sessionOpts, session.WithTTL(*flags.sessionTTL))
	}
	return sessionOpts
}

// buildStoreOptions constructs completion store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		slog.Debug("Configuring completion store", "dsn_type", store.DetectDSNType(*flags.dbDSN))
		storeOpts = append(storeOpts, store.WithDSN(*flags.dbDSN))
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.verifyToken != "" {
		apiOpts = append(apiOpts, api.WithVerifyToken(*flags.verifyToken))
	}
	return apiOpts
}
