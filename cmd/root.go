package cmd

import (
	"context"
	"log"
	"time"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai/gemini"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/favorites"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/secrets"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "licitaciones"

	defaultFavoritesPath = "favorites.json"
)

type Config struct {
	Search *SearchConfig `mapstructure:"search"`
	// Profile is the buyer profile text every tender is scored against.
	Profile    string           `mapstructure:"profile"`
	TicketFile string           `mapstructure:"ticket-file"`
	AI         *AIConfig        `mapstructure:"ai"`
	Favorites  *FavoritesConfig `mapstructure:"favorites"`
	Digest     *DigestConfig    `mapstructure:"digest"`
}

type SearchConfig struct {
	Keywords      string `mapstructure:"keywords"`
	Days          int    `mapstructure:"days"`
	OnlyPublished bool   `mapstructure:"only-published"`
}

type AIConfig struct {
	Models           []string `mapstructure:"models"`
	MaxAttempts      int      `mapstructure:"max-attempts"`
	BaseDelaySeconds int      `mapstructure:"base-delay-seconds"`
	APIKeyFile       string   `mapstructure:"api-key-file"`
}

type FavoritesConfig struct {
	// Backend selects the store: "file" (default) or "redis".
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	RedisURL string `mapstructure:"redis-url"`
}

type DigestConfig struct {
	To               string `mapstructure:"to"`
	From             string `mapstructure:"from"`
	SMTPHost         string `mapstructure:"smtp-host"`
	SMTPPort         int    `mapstructure:"smtp-port"`
	SMTPUser         string `mapstructure:"smtp-user"`
	SMTPPasswordFile string `mapstructure:"smtp-password-file"`
	Schedule         string `mapstructure:"schedule"`
	Limit            int    `mapstructure:"limit"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "licitaciones is a cli for discovering Mercado Público tenders and scoring them with AI",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ticket-file", "MP_TICKET_FILE"); err != nil {
		log.Fatalf("binding MP_TICKET_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is licitaciones.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run and digest commands. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" && digestCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// resolveTicket loads the Mercado Público access ticket. An absent ticket is
// not an error: the fetcher runs in mock mode without one.
func resolveTicket(config *Config) string {
	file := ""
	if config != nil {
		file = config.TicketFile
	}
	if file == "" {
		file = viper.GetString("ticket-file")
	}

	return secrets.LoadOptional(secrets.Source{
		Name: "mercado publico ticket",
		File: file,
	})
}

// newAnalyzer builds the Gemini analyst, or the mock analyzer when no API
// key is configured.
func newAnalyzer(ctx context.Context, config *Config, logger *zap.Logger) (ai.Analyzer, error) {
	keyFile := ""
	if config != nil && config.AI != nil {
		keyFile = config.AI.APIKeyFile
	}
	if keyFile == "" {
		keyFile = viper.GetString("ai.api-key-file")
	}

	apiKey := secrets.LoadOptional(secrets.Source{
		Name: "gemini api key",
		File: keyFile,
	})

	if apiKey == "" {
		logger.Warn("no gemini api key configured, analysis runs in test mode")
		return gemini.MockAnalyzer{}, nil
	}

	cfg := &gemini.Config{}
	if config != nil && config.AI != nil {
		cfg.Models = config.AI.Models
		cfg.MaxAttempts = config.AI.MaxAttempts
		cfg.BaseDelay = time.Duration(config.AI.BaseDelaySeconds) * time.Second
	}

	return gemini.NewAnalyst(ctx, apiKey, cfg, logger)
}

func newFavoritesStore(ctx context.Context, config *Config) (favorites.Store, error) {
	backend, path, redisURL := "file", defaultFavoritesPath, ""
	if config != nil && config.Favorites != nil {
		if config.Favorites.Backend != "" {
			backend = config.Favorites.Backend
		}
		if config.Favorites.Path != "" {
			path = config.Favorites.Path
		}
		redisURL = config.Favorites.RedisURL
	}

	if backend == "redis" {
		return favorites.NewRedisStore(ctx, redisURL)
	}

	return favorites.NewFileStore(path), nil
}
