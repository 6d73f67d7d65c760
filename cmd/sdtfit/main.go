package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"sdtfit/adapters/api"
	"sdtfit/adapters/mcmc"
	"sdtfit/adapters/postgres"
	"sdtfit/adapters/tabular"
	"sdtfit/app"
	"sdtfit/domain/trial"
	"sdtfit/internal"
	"sdtfit/internal/config"
	"sdtfit/internal/report"
	"sdtfit/ports"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()
	ctx := context.Background()
	codes := trial.DefaultCodes()

	var store ports.RunRepository
	var repo *postgres.RunRepository
	if appConfig.Database.URL != "" {
		db, err := sqlx.Connect("postgres", appConfig.Database.URL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		repo = postgres.NewRunRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		store = repo
	}

	service := app.NewAnalysisService(
		tabular.NewReader(appConfig.Data.TrialFile),
		mcmc.NewSampler(),
		store,
		codes,
		logger,
	)

	result, err := service.Run(ctx, app.AnalysisRequest{
		SourcePath: appConfig.Data.TrialFile,
		Sampling: ports.SamplerOptions{
			Draws:        appConfig.Sampler.Draws,
			Tune:         appConfig.Sampler.Tune,
			Chains:       appConfig.Sampler.Chains,
			TargetAccept: appConfig.Sampler.TargetAccept,
			Seed:         appConfig.Sampler.Seed,
		},
	})
	if err != nil {
		log.Fatalf("Analysis run failed: %v", err)
	}

	md, err := report.Markdown(result.Manifest, codes,
		result.SDTTable, result.DeltaTable, result.Posterior)
	if err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	os.Stdout.WriteString(md)

	// With persistence enabled, stay up and serve stored runs.
	if repo != nil {
		server := api.NewServer(repo, codes, logger)
		addr := ":" + appConfig.Server.Port
		logger.Info("serving run artifacts on %s", addr)
		if err := http.ListenAndServe(addr, server); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}
}
