package main

import (
	"context"
	"os"

	"github.com/nwrslept/CallAnalyzer/internal/analyzer"
	"github.com/nwrslept/CallAnalyzer/internal/config"
	"github.com/nwrslept/CallAnalyzer/internal/drive"
	"github.com/nwrslept/CallAnalyzer/internal/gemini"
	"github.com/nwrslept/CallAnalyzer/internal/logger"
	"github.com/nwrslept/CallAnalyzer/internal/pipeline"
	"github.com/nwrslept/CallAnalyzer/internal/sheets"
	"github.com/nwrslept/CallAnalyzer/internal/store"
	"github.com/nwrslept/CallAnalyzer/internal/xlsx"
)

func main() {
	log := logger.New().WithRun().WithField("service", "call-analyzer")
	log.Info("starting batch run")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx := context.Background()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open dedup store")
	}
	defer db.Close()

	src, err := drive.New(ctx, cfg.CredentialsFile, cfg.SourceFolderID, cfg.TempFolder)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Google Drive")
	}

	var writer pipeline.RowWriter
	if cfg.SheetID != "" {
		writer, err = sheets.New(ctx, cfg.CredentialsFile, cfg.SheetID, cfg.SheetName, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to Google Sheets")
		}
	} else {
		log.WithField("path", cfg.ReportXLSX).Info("no sheet configured, writing local workbook")
		writer = xlsx.New(cfg.ReportXLSX, cfg.SheetName, log)
	}

	ai := analyzer.New(gemini.New(cfg.GeminiAPIKey), cfg.GeminiModel, cfg.ServicesList, log)

	log.Info("services connected")

	p := pipeline.New(src, db, ai, writer, log)
	if _, err := p.Run(ctx); err != nil {
		log.WithError(err).Error("batch run aborted")
		os.Exit(1)
	}

	log.Info("all tasks completed")
}
