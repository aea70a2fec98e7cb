package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/xuri/excelize/v2"

	"github.com/scriptparser/coprocessor/internal/config"
	"github.com/scriptparser/coprocessor/internal/domain"
	"github.com/scriptparser/coprocessor/internal/repository"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// runSheetHeader is the column layout of the exported sheet.
var runSheetHeader = []string{
	"Run ID", "Created At", "Mode", "Source", "Business Code",
	"Degraded", "Over Budget", "Total (s)", "Resolve (s)", "Transcribe (s)", "Analyze (s)",
}

func main() {
	// Parse flags
	dest := flag.String("dest", "runs.xlsx", "Destination .xlsx path")
	limit := flag.Int("limit", 500, "Maximum number of runs to export, newest first")
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("scriptparser-export %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if !cfg.History.Enabled {
		logger.Error("run history is disabled; nothing to export")
		os.Exit(1)
	}

	repo, err := repository.NewSQLiteRunRepository(cfg.History.SQLitePath)
	if err != nil {
		logger.Error("failed to open run history store", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	records, err := repo.ListRecent(context.Background(), *limit)
	if err != nil {
		logger.Error("failed to load runs", "error", err)
		os.Exit(1)
	}

	if err := writeWorkbook(*dest, records); err != nil {
		logger.Error("failed to write workbook", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Exported %d runs to %s\n", len(records), *dest)
}

func writeWorkbook(dest string, records []*domain.RunRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Runs"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range runSheetHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return err
		}
	}

	for i, rec := range records {
		row := []any{
			rec.ID,
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			string(rec.Mode),
			rec.SourceKind,
			rec.BusinessCode,
			rec.Degraded,
			rec.OverBudget,
			rec.TotalTime.Seconds(),
		}
		row = append(row, stageSeconds(rec, "resolve"), stageSeconds(rec, "transcribe"), stageSeconds(rec, "analyze"))

		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(dest)
}

// stageSeconds returns the cumulative elapsed seconds at the named
// checkpoint, or an empty cell when the stage never ran.
func stageSeconds(rec *domain.RunRecord, name string) any {
	for _, cp := range rec.Checkpoints {
		if cp.Name == name {
			return cp.Elapsed.Seconds()
		}
	}
	return ""
}
