package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"iconforge/internal/archive"
	"iconforge/internal/billing"
	"iconforge/internal/domain"
	"iconforge/internal/generation"
	"iconforge/internal/http/handlers"
	"iconforge/internal/infra"
	"iconforge/internal/infra/credentials"
	"iconforge/internal/infra/geoip"
	"iconforge/internal/ledger"
	"iconforge/internal/overrides"
	"iconforge/internal/providers/genai"
	"iconforge/internal/providers/image"
	"iconforge/internal/providers/prompt"
	"iconforge/internal/providers/qwen"
	"iconforge/internal/providers/textgen"
	"iconforge/internal/sqlinline"
	"iconforge/internal/storage"
	"iconforge/internal/usage"
)

const (
	priorityHuggingFace  = 10
	priorityGemini       = 20
	priorityQwen         = 30
	priorityPollinations = 100

	negativePrompt = "watermark, signature, blurry, low quality, photo background, extra text"
)

type deps struct {
	App           *handlers.App
	ProviderCount int
	Postgres      bool

	pool  *pgxpool.Pool
	geoip *geoip.Resolver
}

func (d *deps) Close() {
	if d.geoip != nil {
		_ = d.geoip.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

type stores struct {
	credits domain.CreditRepository
	icons   domain.IconRepository
	txs     domain.TransactionRepository
	usage   domain.UsageRepository
	sql     infra.SQLExecutor
}

func buildDeps(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*deps, error) {
	d := &deps{}

	st, err := d.openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	creds := credentials.NewStore(st.sql)

	led, err := ledger.NewService(ledger.Options{
		Store:           st.credits,
		OnboardingGrant: cfg.OnboardingCredits,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	blobs, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	arch, err := archive.New(archive.Options{Icons: st.icons, Blobs: blobs, Logger: logger})
	if err != nil {
		return nil, err
	}

	backend, err := buildTextBackend(ctx, cfg, creds, logger)
	if err != nil {
		return nil, err
	}
	researcher := prompt.NewResearcher(prompt.Options{
		Backend: backend,
		Logger:  logger,
		OnFallback: func(reason string, err error) {
			logger.Warn().Err(err).Str("reason", reason).Msg("prompt research fell back to template")
		},
	})

	providers, err := buildImageProviders(ctx, cfg, creds, logger)
	if err != nil {
		return nil, err
	}
	d.ProviderCount = len(providers)
	chain, err := image.NewChain(image.ChainOptions{Providers: providers, Logger: logger})
	if err != nil {
		return nil, err
	}

	genOpts := generation.Options{
		Ledger:     led,
		Overrides:  overrides.Default(),
		Researcher: researcher,
		Chain:      chain,
		Archive:    arch,
		Usage:      st.usage,
		Logger:     logger,
	}
	if cfg.GeoIPDBPath != "" {
		resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", cfg.GeoIPDBPath).Msg("geoip disabled")
		} else {
			d.geoip = resolver
			genOpts.GeoIP = resolver
		}
	}
	gen, err := generation.New(genOpts)
	if err != nil {
		return nil, err
	}

	var processor billing.PaymentProcessor
	if cfg.StripeSecretKey != "" {
		stripeProc, err := billing.NewStripeProcessor(billing.StripeOptions{
			APIKey:        cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
		})
		if err != nil {
			return nil, err
		}
		processor = stripeProc
	}
	payments, err := billing.NewService(billing.Options{
		Processor:     processor,
		Transactions:  st.txs,
		Ledger:        led,
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	d.App = &handlers.App{
		Generator: gen,
		Credits:   led,
		Icons:     arch,
		Payments:  payments,
		Logger:    logger,
	}
	return d, nil
}

// openStores uses Postgres when DATABASE_URL is set and in-memory stores
// otherwise.
func (d *deps) openStores(ctx context.Context, cfg *infra.Config, logger *infra.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory stores")
		return &stores{
			credits: ledger.NewMemoryStore(),
			icons:   archive.NewMemoryRepository(),
			txs:     billing.NewMemoryTransactions(),
			usage:   usage.NewLogRecorder(logger),
		}, nil
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.pool = pool
	d.Postgres = true
	runner := infra.NewSQLRunner(pool, *logger)
	for _, stmt := range sqlinline.SchemaStatements {
		if _, err := runner.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &stores{
		credits: ledger.NewPostgresStore(runner),
		icons:   archive.NewPostgresRepository(runner),
		txs:     billing.NewPostgresTransactions(runner),
		usage:   usage.NewPostgresRecorder(runner),
		sql:     runner,
	}, nil
}

// buildTextBackend returns nil when no backend is usable; the researcher then
// answers from its template.
func buildTextBackend(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger *infra.Logger) (textgen.Generator, error) {
	switch cfg.TextGenProvider {
	case "huggingface":
		key, err := creds.Resolve(ctx, credentials.ProviderHuggingFace, cfg.HFAPIKey)
		if err != nil {
			return nil, err
		}
		if key == "" {
			logger.Warn().Msg("HF_API_KEY missing, prompt research uses template")
			return nil, nil
		}
		return textgen.NewHuggingFace(textgen.HuggingFaceOptions{
			APIKey:     key,
			BaseURL:    cfg.HFBaseURL,
			Model:      cfg.HFTextModel,
			HTTPClient: &http.Client{Timeout: cfg.ProviderTimeout},
		})
	case "openai":
		key, err := creds.Resolve(ctx, credentials.ProviderOpenAI, cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		if key == "" {
			logger.Warn().Msg("OPENAI_API_KEY missing, prompt research uses template")
			return nil, nil
		}
		return textgen.NewOpenAI(textgen.OpenAIOptions{
			APIKey:  key,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			OnWarning: func(reason, detail string) {
				logger.Warn().Str("reason", reason).Str("detail", detail).Msg("openai model adjusted")
			},
		})
	default:
		return nil, nil
	}
}

// buildImageProviders registers every provider with credentials plus the
// keyless last resort.
func buildImageProviders(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger *infra.Logger) ([]image.Provider, error) {
	client := &http.Client{Timeout: cfg.ProviderTimeout}
	var providers []image.Provider

	hfKey, err := creds.Resolve(ctx, credentials.ProviderHuggingFace, cfg.HFAPIKey)
	if err != nil {
		return nil, err
	}
	if hfKey != "" {
		hf, err := image.NewHuggingFace(image.HuggingFaceOptions{
			APIKey:         hfKey,
			BaseURL:        cfg.HFBaseURL,
			Model:          cfg.HFImageModel,
			NegativePrompt: negativePrompt,
			HTTPClient:     client,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, image.Provider{Generator: hf, Priority: priorityHuggingFace})
	}

	geminiKey, err := creds.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	if gem := genai.NewClient(genai.Options{
		APIKey:     geminiKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: client,
		Logger:     logger,
	}); gem.HasCredentials() {
		providers = append(providers, image.Provider{Generator: image.NewGemini(gem), Priority: priorityGemini})
	}

	qwenKey, err := creds.Resolve(ctx, credentials.ProviderQwen, cfg.QwenAPIKey)
	if err != nil {
		return nil, err
	}
	if qc := qwen.NewClient(qwen.Options{
		APIKey:     qwenKey,
		BaseURL:    cfg.QwenBaseURL,
		Model:      cfg.QwenModel,
		HTTPClient: client,
		Logger:     logger,
	}); qc.HasCredentials() {
		providers = append(providers, image.Provider{
			Generator:      image.NewQwen(qc, negativePrompt),
			Priority:       priorityQwen,
			LayoutFaithful: true,
		})
	}

	providers = append(providers, image.Provider{
		Generator: image.NewPollinations(image.PollinationsOptions{
			BaseURL:    cfg.PollinationsBaseURL,
			HTTPClient: client,
		}),
		Priority:   priorityPollinations,
		LastResort: true,
	})
	return providers, nil
}
