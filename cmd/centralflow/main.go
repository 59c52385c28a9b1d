package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/andressabgomes/centralflow-sub000/internal/api"
	"github.com/andressabgomes/centralflow-sub000/internal/bot"
	"github.com/andressabgomes/centralflow-sub000/internal/botconfig"
	"github.com/andressabgomes/centralflow-sub000/internal/messaging"
	"github.com/andressabgomes/centralflow-sub000/internal/store"
	"github.com/andressabgomes/centralflow-sub000/internal/twiliowhatsapp"
	"github.com/andressabgomes/centralflow-sub000/internal/util"
	"github.com/andressabgomes/centralflow-sub000/internal/whatsapp"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for CentralFlow state data
	DefaultStateDir = "/var/lib/centralflow"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "centralflow.db"
	// DefaultWhatsAppDBFileName is the default whatsmeow session database filename
	DefaultWhatsAppDBFileName = "whatsmeow.db"
)

// Supported messaging channels.
const (
	ChannelWhatsApp  = "whatsapp"
	ChannelTwilio    = "twilio"
	ChannelSimulated = "simulated"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping CentralFlow", "channel", *flags.channel)
	if err := run(flags); err != nil {
		slog.Error("CentralFlow failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("CentralFlow exited successfully")
}

// Config holds environment configuration. Twilio credentials are read by the
// twiliowhatsapp client itself.
type Config struct {
	Channel        string
	DatabaseURL    string
	WhatsAppDSN    string
	StateDir       string
	APIAddr        string
	VerifyToken    string
	BotTemplates   string
	WatchTemplates bool
}

// Flags holds command line flag values
type Flags struct {
	channel        *string
	qrOutput       *string
	numeric        *bool
	stateDir       *string
	dbDSN          *string
	waDSN          *string
	apiAddr        *string
	verifyToken    *string
	botTemplates   *string
	watchTemplates *bool
}

// initializeLogger sets up structured logging. The level follows $LOG_LEVEL
// (debug/info/warn/error, default debug).
func initializeLogger() {
	level := slog.LevelDebug
	switch util.GetenvDefault("LOG_LEVEL", "debug") {
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
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
		Channel:        util.GetenvDefault("CHANNEL", ChannelWhatsApp),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		WhatsAppDSN:    os.Getenv("WHATSAPP_DB_DSN"),
		StateDir:       os.Getenv("CENTRALFLOW_STATE_DIR"),
		APIAddr:        os.Getenv("API_ADDR"),
		VerifyToken:    os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		BotTemplates:   os.Getenv("BOT_TEMPLATES"),
		WatchTemplates: util.ParseBoolEnv("BOT_TEMPLATES_WATCH", true),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CENTRALFLOW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// Default to SQLite files in the state directory when no DSNs are given.
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.WhatsAppDSN == "" {
		config.WhatsAppDSN = filepath.Join(config.StateDir, DefaultWhatsAppDBFileName)
	}

	slog.Debug("environment variables loaded",
		"CHANNEL", config.Channel,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"WHATSAPP_DB_DSN_SET", config.WhatsAppDSN != "",
		"CENTRALFLOW_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"WEBHOOK_VERIFY_TOKEN_SET", config.VerifyToken != "",
		"BOT_TEMPLATES", config.BotTemplates,
		"BOT_TEMPLATES_WATCH", config.WatchTemplates)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		channel:        flag.String("channel", config.Channel, "messaging channel: whatsapp, twilio or simulated (overrides $CHANNEL)"),
		qrOutput:       flag.String("qr-output", "", "path to write WhatsApp login QR code"),
		numeric:        flag.Bool("numeric-code", false, "use numeric WhatsApp login code instead of QR code"),
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for CentralFlow data (overrides $CENTRALFLOW_STATE_DIR)"),
		dbDSN:          flag.String("db-dsn", config.DatabaseURL, "database DSN for the CentralFlow store (overrides $DATABASE_URL)"),
		waDSN:          flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "database DSN for the whatsmeow session store (overrides $WHATSAPP_DB_DSN)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		verifyToken:    flag.String("webhook-verify-token", config.VerifyToken, "token for webhook verification (overrides $WEBHOOK_VERIFY_TOKEN)"),
		botTemplates:   flag.String("bot-templates", config.BotTemplates, "YAML file overriding the bot reply templates (overrides $BOT_TEMPLATES)"),
		watchTemplates: flag.Bool("watch-templates", config.WatchTemplates, "hot-reload the bot template file on change (overrides $BOT_TEMPLATES_WATCH)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"channel", *flags.channel,
		"qrOutput", *flags.qrOutput,
		"numeric", *flags.numeric,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"waDSN_set", *flags.waDSN != "",
		"apiAddr", *flags.apiAddr,
		"botTemplates", *flags.botTemplates,
		"watchTemplates", *flags.watchTemplates)

	return flags
}

// ensureDirectoriesExist creates the state directory for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildStore selects the store backend by DSN type.
func buildStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildTemplates loads the bot reply templates, layered over defaults.
func buildTemplates(flags Flags) *botconfig.Provider {
	if *flags.botTemplates == "" {
		return botconfig.NewProvider(botconfig.Defaults())
	}
	tmpl, err := botconfig.Load(*flags.botTemplates)
	if err != nil {
		slog.Warn("Failed to load bot templates, using defaults", "error", err, "path", *flags.botTemplates)
		return botconfig.NewProvider(botconfig.Defaults())
	}
	return botconfig.NewProvider(tmpl)
}

// buildMessagingService constructs the delivery channel selected by flags.
func buildMessagingService(flags Flags) (messaging.Service, error) {
	switch *flags.channel {
	case ChannelTwilio:
		client, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, err
		}
		return messaging.NewTwilioService(client), nil

	case ChannelSimulated:
		slog.Warn("Using simulated messaging channel; no real messages will be sent")
		return messaging.NewSimulatedService(), nil

	default:
		waOpts := []whatsapp.Option{whatsapp.WithDBDSN(*flags.waDSN)}
		if *flags.qrOutput != "" {
			waOpts = append(waOpts, whatsapp.WithQRCodeOutput(*flags.qrOutput))
		}
		if *flags.numeric {
			waOpts = append(waOpts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(waOpts...)
		if err != nil {
			return nil, err
		}
		return messaging.NewWhatsAppService(client), nil
	}
}

// run wires the modules together and blocks until shutdown.
func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	templates := buildTemplates(flags)
	if *flags.botTemplates != "" && *flags.watchTemplates {
		go func() {
			if err := botconfig.Watch(ctx, *flags.botTemplates, templates); err != nil {
				slog.Warn("Bot template watcher stopped", "error", err)
			}
		}()
	}

	service, err := buildMessagingService(flags)
	if err != nil {
		return err
	}
	defer service.Stop()

	engine := bot.NewEngine(templates, bot.NewStoreMaterializer(st))
	handler := messaging.NewInboundHandler(st, engine, service)

	if err := service.Start(ctx); err != nil {
		return err
	}
	go handler.Run(ctx)

	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.verifyToken != "" {
		apiOpts = append(apiOpts, api.WithWebhookVerifyToken(*flags.verifyToken))
	}
	server := api.NewServer(st, service, apiOpts...)
	return server.Run(ctx)
}
