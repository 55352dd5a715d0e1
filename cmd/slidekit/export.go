package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/export"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [deck]",
	Short: "Export a deck to PDF or PPTX",
	Long: `Rasterize every slide of a deck and assemble a PDF or PPTX file.

Slides are captured in headless Chrome when one is available, otherwise
with the built-in renderer. With --db the stored copy of the deck is
exported, including edits saved through the save API.

Example:
  slidekit export talk.md
  slidekit export deck.yaml --format pptx -o deck.pptx --raster`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "", "Output file (default: deck name with the format's extension)")
	exportCmd.Flags().StringP("format", "f", "", "Output format: pdf or pptx (overrides config)")
	exportCmd.Flags().String("chrome", "", "Chrome binary used for rendering")
	exportCmd.Flags().Bool("raster", false, "Use the built-in renderer even when Chrome is available")
	exportCmd.Flags().Float64("ratio", 0, "Pixel ratio for slide captures")
	exportCmd.Flags().String("db", "", "Export the deck stored in this SQLite database")
	exportCmd.Flags().Bool("json", false, "Print the export result as JSON")
}

// choosePageFactory picks headless Chrome when usable and the raster
// renderer otherwise
func choosePageFactory(cfg entities.ExportConfig, forceRaster bool, logger *slog.Logger) ports.PageFactory {
	bc := export.BrowserConfig{
		ExecutablePath: cfg.BrowserPath,
		RemoteURL:      cfg.RemoteURL,
		SettleDelay:    cfg.GetSettleDelay(),
		Logger:         logger,
	}
	if !forceRaster && export.BrowserAvailable(bc) {
		return export.NewBrowserAutomation(bc)
	}
	if !forceRaster {
		logger.Warn("no Chrome found, using the built-in renderer")
	}
	return export.NewImageRenderer()
}

// defaultOutputPath replaces the deck's extension with the format's
func defaultOutputPath(deckPath string, format entities.ExportFormat) string {
	base := strings.TrimSuffix(deckPath, filepath.Ext(deckPath))
	return base + "." + string(format)
}

// exportDeck loads the deck, preferring a stored copy, and exports it
func exportDeck(ctx context.Context, cfg *entities.Config, deckPath string, pages ports.PageFactory, opts *export.ExportOptions, logger *slog.Logger) (*export.ExportResult, error) {
	loader, _, err := newDeckLoader(logger)
	if err != nil {
		return nil, err
	}
	deck, err := loader.Load(ctx, deckPath)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Driver == "sqlite" {
		repo, err := openRepository(cfg.Storage, ports.NewRealTimeProvider(), logger)
		if err != nil {
			return nil, err
		}
		defer func() { _ = repo.Close() }()

		stored, err := repo.GetPresentation(ctx, deck.ID)
		switch {
		case err == nil:
			logger.Info("exporting stored deck", "presentation", stored.ID)
			deck = stored
		case errors.Is(err, ports.ErrPresentationNotFound):
			logger.Info("deck not in store, exporting file contents", "presentation", deck.ID)
		default:
			return nil, err
		}
	}

	service := export.NewService(pages, export.ConfigFromEntities(cfg.Export), nil, logger)
	return service.Export(ctx, deck, opts)
}

func runExport(cmd *cobra.Command, args []string) error {
	deckPath := args[0]
	if err := validateDeckPath(deckPath); err != nil {
		return err
	}

	cfg, logger, closeLog, err := setup(cmd, deckPath)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	format := cfg.Export.GetFormat()
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = defaultOutputPath(deckPath, format)
	}
	ratio, _ := cmd.Flags().GetFloat64("ratio")
	raster, _ := cmd.Flags().GetBool("raster")
	asJSON, _ := cmd.Flags().GetBool("json")

	pages := choosePageFactory(cfg.Export, raster, logger)
	defer func() { _ = pages.Close() }()

	result, err := exportDeck(cmd.Context(), cfg, deckPath, pages, &export.ExportOptions{
		Format:     format,
		OutputPath: output,
		PixelRatio: ratio,
	}, logger)

	if asJSON && result != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			return encErr
		}
	}
	if err != nil {
		return err
	}

	if !asJSON {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d slides to %s (%s, %d bytes, %s renderer)\n",
			result.PageCount, result.OutputPath, result.Format, result.FileSize, result.Renderer)
	}
	return nil
}
