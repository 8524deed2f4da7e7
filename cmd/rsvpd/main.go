package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/evinta/rsvpd/internal/api"
	"github.com/evinta/rsvpd/internal/genai"
	"github.com/evinta/rsvpd/internal/store"
	"github.com/evinta/rsvpd/internal/util"
	"github.com/evinta/rsvpd/internal/voice"
	"github.com/evinta/rsvpd/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for rsvpd state data
	DefaultStateDir = "/var/lib/rsvpd"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "rsvpd.db"
	// DefaultUploadsDirName is the default directory for collected documents
	DefaultUploadsDirName = "uploads"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Build module options
	waOpts := buildWhatsAppOptions(flags)
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	voiceOpts := buildVoiceOptions(flags)
	apiOpts := buildAPIOptions(flags)

	// Start the service
	slog.Info("Bootstrapping rsvpd with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr, "provider", *flags.provider)
	if err := api.Run(waOpts, storeOpts, genaiOpts, voiceOpts, apiOpts); err != nil {
		slog.Error("rsvpd failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("rsvpd exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL   string
	StateDir      string
	OpenAIKey     string
	WhatsAppToken string
	PhoneNumberID string
	VerifyToken   string
	Provider      string
	APIAddr       string
	UploadsDir    string
	UploadsURL    string
	SyncSchedule  string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	openaiKey    *string
	waToken      *string
	phoneID      *string
	verifyToken  *string
	provider     *string
	apiAddr      *string
	uploadsDir   *string
	uploadsURL   *string
	syncSchedule *string
}

// initializeLogger sets up structured logging; RSVPD_DEBUG=true enables debug level
func initializeLogger() {
	level := slog.LevelInfo
	if util.BoolEnv("RSVPD_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
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
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("RSVPD_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		WhatsAppToken: os.Getenv("WHATSAPP_TOKEN"),
		PhoneNumberID: os.Getenv("PHONE_NUMBER_ID"),
		VerifyToken:   os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		Provider:      os.Getenv("MESSAGING_PROVIDER"),
		APIAddr:       os.Getenv("API_ADDR"),
		UploadsDir:    os.Getenv("RSVPD_UPLOADS_DIR"),
		UploadsURL:    os.Getenv("RSVPD_UPLOADS_URL"),
		SyncSchedule:  os.Getenv("CALL_SYNC_SCHEDULE"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No RSVPD_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	// Collected documents live in the state directory unless overridden
	if config.UploadsDir == "" {
		config.UploadsDir = filepath.Join(config.StateDir, DefaultUploadsDirName)
	}

	if config.Provider == "" {
		config.Provider = api.ProviderCloud
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"RSVPD_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"WHATSAPP_TOKEN_SET", config.WhatsAppToken != "",
		"MESSAGING_PROVIDER", config.Provider,
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for rsvpd data (overrides $RSVPD_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN, SQLite path or postgres:// URL (overrides $DATABASE_URL)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for the extraction oracle (overrides $OPENAI_API_KEY)"),
		waToken:      flag.String("whatsapp-token", config.WhatsAppToken, "WhatsApp Cloud API access token (overrides $WHATSAPP_TOKEN)"),
		phoneID:      flag.String("phone-number-id", config.PhoneNumberID, "WhatsApp Cloud API phone number id (overrides $PHONE_NUMBER_ID)"),
		verifyToken:  flag.String("verify-token", config.VerifyToken, "webhook verification secret (overrides $WEBHOOK_VERIFY_TOKEN)"),
		provider:     flag.String("messaging-provider", config.Provider, "outbound messaging provider: cloud or twilio (overrides $MESSAGING_PROVIDER)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		uploadsDir:   flag.String("uploads-dir", config.UploadsDir, "directory for collected documents (overrides $RSVPD_UPLOADS_DIR)"),
		uploadsURL:   flag.String("uploads-url", config.UploadsURL, "public URL prefix for collected documents (overrides $RSVPD_UPLOADS_URL)"),
		syncSchedule: flag.String("call-sync-schedule", config.SyncSchedule, "cron schedule for voice batch status polling (overrides $CALL_SYNC_SCHEDULE)"),
	}
	flag.Parse()
	return flags
}

// ensureDirectoriesExist creates the state and uploads directories
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(*flags.uploadsDir, 0o755)
}

func buildWhatsAppOptions(flags Flags) []whatsapp.Option {
	var opts []whatsapp.Option
	if *flags.waToken != "" {
		opts = append(opts, whatsapp.WithAccessToken(*flags.waToken))
	}
	if *flags.phoneID != "" {
		opts = append(opts, whatsapp.WithPhoneNumberID(*flags.phoneID))
	}
	return opts
}

func buildStoreOptions(flags Flags) []store.Option {
	var opts []store.Option
	if *flags.dbDSN == "" {
		return opts
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		opts = append(opts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		opts = append(opts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return opts
}

func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	return opts
}

func buildVoiceOptions(flags Flags) []voice.Option {
	// The voice client reads its credentials from the environment; explicit
	// options are only needed in tests.
	return nil
}

func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.verifyToken != "" {
		opts = append(opts, api.WithVerifyToken(*flags.verifyToken))
	}
	if *flags.provider != "" {
		opts = append(opts, api.WithMessagingProvider(*flags.provider))
	}
	if *flags.uploadsDir != "" {
		opts = append(opts, api.WithUploadsDir(*flags.uploadsDir))
	}
	if *flags.uploadsURL != "" {
		opts = append(opts, api.WithUploadsBaseURL(*flags.uploadsURL))
	}
	if *flags.syncSchedule != "" {
		opts = append(opts, api.WithSyncSchedule(*flags.syncSchedule))
	}
	return opts
}
