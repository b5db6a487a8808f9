package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"text-summarizer/handler"
	appconfig "text-summarizer/internal/config"
	"text-summarizer/internal/integrations/bedrock"
	"text-summarizer/internal/integrations/openai"
	"text-summarizer/internal/integrations/paramstore"
	"text-summarizer/internal/repository"
	"text-summarizer/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := appconfig.Load(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: cfg.LogLevel <= slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// ---- AWS SDK config ----
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		fatal("failed to load AWS config", err)
	}

	// ---- Clients ----
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		fatal("failed to create SSM client", err)
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.ResultsTable)
	if err != nil {
		fatal("failed to create results store", err)
	}

	var gen usecase.Generator
	switch cfg.Generation.Provider {
	case appconfig.ProviderBedrock:
		gen, err = bedrock.NewClient(awsbedrock.NewFromConfig(awsCfg),
			bedrock.WithModelID(cfg.Generation.ModelID),
			bedrock.WithMaxTokenCount(cfg.Generation.MaxTokenCount),
			bedrock.WithTemperature(cfg.Generation.Temperature),
		)
	case appconfig.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithModel(cfg.Generation.OpenAIModel),
			openai.WithMaxTokens(cfg.Generation.MaxTokenCount),
			openai.WithTemperature(cfg.Generation.Temperature),
		}
		if cfg.Generation.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Generation.OpenAIBaseURL))
		}
		gen, err = openai.NewClient(params, cfg.Generation.ParamPrefix, opts...)
	}
	if err != nil {
		fatal("failed to create generation client", err)
	}

	keywords, err := appconfig.LoadKeywords(ctx, params, cfg.Summary.KeywordsParam)
	if err != nil {
		fatal("failed to load keyword responses", err)
	}

	// ---- Handler ----
	chain, err := usecase.BuildChain(logger, usecase.ChainConfig{
		Order:           cfg.Summary.Chain,
		Generator:       gen,
		Keywords:        keywords,
		SentenceCount:   cfg.Summary.SentenceCount,
		TruncateLength:  cfg.Summary.TruncateLength,
		FallbackMessage: cfg.Summary.FallbackMessage,
	})
	if err != nil {
		fatal("failed to build summary chain", err)
	}

	svc, err := usecase.NewSummarizeService(chain, store, logger, cfg.Summary.MaxTextLength)
	if err != nil {
		fatal("failed to create summarize service", err)
	}

	origin := ""
	if cfg.HTTP.CORSEnabled {
		origin = cfg.HTTP.CORSAllowOrigin
	}
	h, err := handler.NewHandler(svc,
		handler.WithLogger(logger),
		handler.WithFormat(handler.Format(cfg.HTTP.ResponseFormat)),
		handler.WithCORS(origin),
	)
	if err != nil {
		fatal("failed to create handler", err)
	}

	logger.Info("handler ready",
		"provider", cfg.Generation.Provider,
		"chain", chain.Names(),
		"keywords", len(keywords),
		"table", cfg.ResultsTable,
	)
	lambda.Start(h.Handle)
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
