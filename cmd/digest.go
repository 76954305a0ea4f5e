package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/digest"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/logger"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/mercadopublico"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/secrets"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Mail the daily tender report, once or on a schedule",
	Run: func(cmd *cobra.Command, _ []string) {
		runDigest(cmd)
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)

	digestCmd.Flags().StringP("schedule", "s", "", "cron spec, overrides the config value; empty runs once")
}

func runDigest(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil || config.Search == nil {
		logger.Fatal("search configuration is required under the search key")
	}
	if config.Digest == nil || config.Digest.To == "" {
		logger.Fatal("recipient is required under digest.to")
	}

	ticket := resolveTicket(config)
	if ticket == "" {
		logger.Warn("no mercado publico ticket configured, digest uses mock data")
	}

	analyzer, err := newAnalyzer(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the analyzer", zap.Error(err))
	}

	password, err := secrets.Load(secrets.Source{
		Name: "smtp password",
		File: config.Digest.SMTPPasswordFile,
	})
	if err != nil {
		logger.Fatal("loading smtp credentials", zap.Error(err))
	}

	runner := &digest.Runner{
		Client:   mercadopublico.New(ctx, logger, ticket),
		Analyzer: analyzer,
		Logger:   logger,
		Mailer: &digest.Mailer{
			Host:     config.Digest.SMTPHost,
			Port:     config.Digest.SMTPPort,
			Username: config.Digest.SMTPUser,
			Password: password,
			From:     config.Digest.From,
		},
		Keywords:      config.Search.Keywords,
		Profile:       config.Profile,
		OnlyPublished: config.Search.OnlyPublished,
		To:            config.Digest.To,
		Limit:         config.Digest.Limit,
	}

	schedule, _ := cmd.Flags().GetString("schedule")
	if schedule == "" {
		schedule = config.Digest.Schedule
	}

	if schedule == "" {
		if err := runner.Run(ctx); err != nil {
			logger.Fatal("running digest", zap.Error(err))
		}
		return
	}

	scheduler, err := runner.Schedule(ctx, schedule)
	if err != nil {
		logger.Fatal("scheduling digest", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	scheduler.Stop()
	logger.Info("digest scheduler stopped")
}
