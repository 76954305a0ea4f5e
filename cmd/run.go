package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/ai"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/favorites"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/logger"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/mercadopublico"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/pdfx"
	"github.com/usitalopin-lang/licitaciones-chile-ia/internal/report"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptShowTable      = "Mostrar tabla"
	PromptAnalyze        = "Analizar con IA"
	PromptAnalyzeOne     = "Analizar una con IA"
	PromptReport         = "Reporte por organismo"
	PromptSaveFavorite   = "Guardar favorito"
	PromptRemoveFavorite = "Eliminar favorito"
	PromptListFavorites  = "Ver favoritos"
	PromptExportCSV      = "Exportar CSV"
	PromptDumpJSON       = "Dump JSON"
	PromptExit           = "Salir"
	PromptBack           = "volver"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Acción",
	Items: []string{
		PromptShowTable, PromptAnalyze, PromptAnalyzeOne, PromptReport,
		PromptSaveFavorite, PromptRemoveFavorite, PromptListFavorites,
		PromptExportCSV, PromptDumpJSON, PromptExit,
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the licitaciones main command",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("no-interactive", "n", false, "print the results table and exit")
	runCmd.Flags().StringP("document", "p", "", "path to a PDF attached to every analysis")
	runCmd.Flags().Int("days", 0, "days back to search, overrides the config value")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting licitaciones", zap.String("version", version))

	if config == nil || config.Search == nil {
		logger.Fatal("search configuration is required under the search key")
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	ticket := resolveTicket(config)
	if ticket == "" {
		logger.Warn("no mercado publico ticket configured",
			zap.String("hint", "set MP_TICKET_FILE or the 'ticket-file' key; running with mock data"),
		)
	}

	mp := mercadopublico.New(ctx, logger, ticket)

	days := config.Search.Days
	if flagDays, _ := cmd.Flags().GetInt("days"); flagDays > 0 {
		days = flagDays
	}
	if days < 1 {
		days = 1
	}

	today := time.Now()
	params := &mercadopublico.SearchParams{
		Keywords:      config.Search.Keywords,
		From:          today.AddDate(0, 0, -(days - 1)),
		To:            today,
		OnlyPublished: config.Search.OnlyPublished,
	}

	logger.Info("starting the search",
		zap.String("keywords", params.Keywords),
		zap.Int("days", days),
		zap.Bool("only_published", params.OnlyPublished),
	)

	tenders, err := mp.Fetch(params)
	if err != nil {
		if errors.Is(err, mercadopublico.ErrInvalidTicket) {
			logger.Fatal("mercado publico rejected the ticket",
				zap.String("hint", "verify the ticket at https://api.mercadopublico.cl"),
			)
		}
		logger.Fatal("fetching tenders", zap.Error(err))
	}

	logger.Info("getting tenders", zap.Int("count", tenders.Len()))

	if tenders.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no tenders found"))
		return
	}

	analyzer, err := newAnalyzer(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the analyzer", zap.Error(err))
	}

	store, err := newFavoritesStore(ctx, config)
	if err != nil {
		logger.Fatal("building the favorites store", zap.Error(err))
	}

	extraText, document := loadDocument(cmd, logger)

	if noInteractive, _ := cmd.Flags().GetBool("no-interactive"); noInteractive {
		fmt.Print(report.RenderTable(tenders))
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, logger, config, analyzer, store, tenders, extraText, document); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, logger *zap.Logger, config *Config, analyzer ai.Analyzer, store favorites.Store, tenders *mercadopublico.Tenders, extraText string, document []byte) error {
	switch action {
	case PromptShowTable:
		fmt.Print(report.RenderTable(tenders))
		return nil
	case PromptAnalyze:
		analyzeAll(ctx, logger, config, analyzer, tenders, extraText, document)
		return nil
	case PromptAnalyzeOne:
		return analyzeOne(ctx, logger, config, analyzer, tenders, extraText, document)
	case PromptReport:
		pretty, _ := json.MarshalIndent(tenders.ReportByAgency(), "", "  ")
		logger.Info(string(pretty), zap.Int("tenders count", tenders.Len()))
		return nil
	case PromptSaveFavorite:
		return saveFavorite(logger, store, tenders)
	case PromptRemoveFavorite:
		return removeFavorite(logger, store)
	case PromptListFavorites:
		items, err := store.List()
		if err != nil {
			return fmt.Errorf("listing favorites: %w", err)
		}
		pretty, _ := json.MarshalIndent(items, "", "  ")
		logger.Info(string(pretty), zap.Int("favorites count", len(items)))
		return nil
	case PromptExportCSV:
		filename, err := report.DumpCSVToTmpFile(tenders)
		if err != nil {
			return fmt.Errorf("export results to csv: %w", err)
		}
		logger.Info("exporting results to csv", zap.String("filename", filename))
		return nil
	case PromptDumpJSON:
		filename, err := tenders.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// analyzeAll scores every tender that has no analysis yet. Results stay
// attached to the records, keyed by tender code, so repeating the action
// never re-spends quota.
func analyzeAll(ctx context.Context, logger *zap.Logger, config *Config, analyzer ai.Analyzer, tenders *mercadopublico.Tenders, extraText string, document []byte) {
	for _, tender := range tenders.Items {
		if tender.AI != nil {
			continue
		}
		analyzeTender(ctx, logger, config, analyzer, tender, extraText, document)
	}
}

// analyzeOne lets the user pick a single tender and scores it. An explicit
// selection re-analyzes even when a cached result exists.
func analyzeOne(ctx context.Context, logger *zap.Logger, config *Config, analyzer ai.Analyzer, tenders *mercadopublico.Tenders, extraText string, document []byte) error {
	tender, err := pickTender(tenders)
	if err != nil || tender == nil {
		return err
	}

	analyzeTender(ctx, logger, config, analyzer, tender, extraText, document)
	return nil
}

func analyzeTender(ctx context.Context, logger *zap.Logger, config *Config, analyzer ai.Analyzer, tender *mercadopublico.Tender, extraText string, document []byte) {
	profile := ""
	if config != nil {
		profile = config.Profile
	}

	tender.AI = analyzer.Analyze(ctx, &ai.Request{
		Title:       tender.Nombre,
		Description: tender.Descripcion,
		Criteria:    profile,
		ExtraText:   extraText,
		Document:    document,
	})

	logger.Info("tender analyzed",
		zap.String("codigo", tender.CodigoExterno),
		zap.Int("score", tender.AI.Score),
		zap.String("reason", tender.AI.Reason),
	)
}

// pickTender prompts for one tender from the fetched set. A nil tender with a
// nil error means the user backed out.
func pickTender(tenders *mercadopublico.Tenders) (*mercadopublico.Tender, error) {
	items := make([]string, 0, tenders.Len())
	for _, t := range tenders.Items {
		items = append(items, fmt.Sprintf("%s %s / %s", t.CodigoExterno, t.Nombre, t.Organismo))
	}

	tenderPrompt := promptui.Select{
		Label: "Elige una licitación y presiona ENTER",
		Items: append(items, PromptBack),
	}

	_, selected, err := tenderPrompt.Run()
	if err != nil {
		return nil, err
	}

	if selected == PromptBack {
		return nil, nil
	}

	code := selectionCode(selected)
	tender := tenders.FindByCode(code)
	if tender == nil {
		return nil, fmt.Errorf("there is no such tender code %s", code)
	}

	return tender, nil
}

// selectionCode recovers the tender code from a prompt label; the code is
// always the first space-delimited field.
func selectionCode(selected string) string {
	return strings.Split(selected, " ")[0]
}

func saveFavorite(logger *zap.Logger, store favorites.Store, tenders *mercadopublico.Tenders) error {
	tender, err := pickTender(tenders)
	if err != nil || tender == nil {
		return err
	}

	added, err := store.Add(favorites.FromTender(tender))
	if err != nil {
		return fmt.Errorf("saving favorite: %w", err)
	}

	if !added {
		logger.Warn("tender is already in favorites", zap.String("codigo", tender.CodigoExterno))
		return nil
	}

	logger.Info("favorite saved", zap.String("codigo", tender.CodigoExterno), zap.String("nombre", tender.Nombre))
	return nil
}

// removeFavorite prompts for a saved favorite and deletes it from the store.
func removeFavorite(logger *zap.Logger, store favorites.Store) error {
	items, err := store.List()
	if err != nil {
		return fmt.Errorf("listing favorites: %w", err)
	}

	if len(items) == 0 {
		logger.Info("no favorites to remove")
		return nil
	}

	labels := make([]string, 0, len(items))
	for _, f := range items {
		labels = append(labels, fmt.Sprintf("%s %s", f.Code, f.Name))
	}

	favoritePrompt := promptui.Select{
		Label: "Elige un favorito a eliminar",
		Items: append(labels, PromptBack),
	}

	_, selected, err := favoritePrompt.Run()
	if err != nil {
		return err
	}

	if selected == PromptBack {
		return nil
	}

	return deleteFavorite(logger, store, selectionCode(selected))
}

func deleteFavorite(logger *zap.Logger, store favorites.Store, code string) error {
	if err := store.Remove(code); err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}

	logger.Info("favorite removed", zap.String("codigo", code))
	return nil
}

// loadDocument reads the optional PDF flag and extracts its text best-effort.
// Extraction failure is not fatal: the raw bytes still go to the backend for
// visual reading.
func loadDocument(cmd *cobra.Command, log *zap.Logger) (string, []byte) {
	path, _ := cmd.Flags().GetString("document")
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("reading document failed, continuing without it",
			zap.String("path", path),
			zap.Error(err),
		)
		return "", nil
	}

	text, ok := pdfx.ExtractFromBytes(data)
	if !ok {
		log.Warn("could not extract text from document, attaching raw bytes only",
			zap.String("path", path),
		)
		return "", data
	}

	log.Debug("document text extracted",
		zap.String("path", path),
		zap.String("preview", logger.TruncateForLog(text, 200)),
	)

	return text, data
}
