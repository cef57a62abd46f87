// Command scheduler periodically re-runs a fixed set of portfolio
// analyses on a cron schedule, one goroutine per portfolio, demonstrating
// §5's "independent analysis runs may execute in parallel, each owning its
// own inputs and derived artefacts exclusively." Each run's inputs are
// read from the on-disk session cache (internal/cache); the cache is
// populated by a separate data-loading step out of scope for this binary.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/globalfund/allocengine/internal/cache"
	"github.com/globalfund/allocengine/internal/config"
	"github.com/globalfund/allocengine/internal/domain"
	"github.com/globalfund/allocengine/internal/reportsink"
	"github.com/globalfund/allocengine/pkg/analysis"
)

// portfolioJob names one disease portfolio's cached tables and the
// analysis parameters to run it with.
type portfolioJob struct {
	Name         string
	ModelResults string
	PartnerData  string
	PFInputData  string
	Params       *domain.Parameters
}

func loadInputs(c *cache.SessionCache, job portfolioJob) (analysis.Inputs, error) {
	mr := domain.NewModelResults()
	rows, err := cache.GetTable[domain.Datum](c, job.ModelResults)
	if err != nil {
		return analysis.Inputs{}, err
	}
	for _, r := range rows {
		if err := mr.Table().Insert(r.Key, r.Value); err != nil {
			return analysis.Inputs{}, err
		}
	}

	partner := domain.NewPartnerData()
	if rows, err := cache.GetTable[float64](c, job.PartnerData); err == nil {
		for _, r := range rows {
			_ = partner.Table().Insert(r.Key, r.Value)
		}
	}

	pfInput := domain.NewPFInputData()
	if rows, err := cache.GetTable[float64](c, job.PFInputData); err == nil {
		for _, r := range rows {
			_ = pfInput.Table().Insert(r.Key, r.Value)
		}
	}

	return analysis.Inputs{
		ModelResults:  mr,
		PartnerData:   partner,
		PFInputData:   pfInput,
		TgfFunding:    domain.NewTgfFunding(),
		NonTgfFunding: domain.NewNonTgfFunding(),
	}, nil
}

// runAll executes every job concurrently and waits for all to finish,
// logging each outcome independently so one portfolio's failure does not
// block or obscure another's.
func runAll(ctx context.Context, jobs []portfolioJob, cachePath string, sink *reportsink.Sink, logger zerolog.Logger) {
	c, err := cache.Open(cachePath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open session cache")
		return
	}
	defer c.Close()

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job portfolioJob) {
			defer wg.Done()
			jobLogger := logger.With().Str("portfolio", job.Name).Logger()

			inputs, err := loadInputs(c, job)
			if err != nil {
				jobLogger.Error().Err(err).Msg("failed to load cached inputs")
				return
			}
			countries := inputs.ModelResults.Countries()
			job.Params.ModelledCountries = countries
			job.Params.PortfolioCountries = countries

			result, err := analysis.RunAnalysis(job.Params, inputs, jobLogger)
			if err != nil {
				jobLogger.Error().Err(err).Msg("analysis run failed")
				return
			}
			jobLogger.Info().Str("run_id", result.RunID).Int("warnings", len(result.Warnings)).Msg("analysis run complete")

			if sink != nil {
				if err := sink.UploadAll(ctx, result.Report); err != nil {
					jobLogger.Error().Err(err).Msg("failed to upload report measures")
				}
			}
		}(job)
	}
	wg.Wait()
}

// loadPortfolioParams stands in for the per-disease business configuration
// lookup (modelled/portfolio countries, indicator tables, objective
// indicators) a real deployment would load from a config store keyed by
// portfolio name.
func loadPortfolioParams(portfolio string) *domain.Parameters {
	return &domain.Parameters{
		YearsForFunding:     domain.YearRange{Start: 2024, End: 2026},
		YearsForObjFunc:     domain.YearRange{Start: 2024, End: 2026},
		ObjectiveIndicators: []string{domain.IndicatorCases, domain.IndicatorDeaths},
		Indicators: map[string]domain.Indicator{
			domain.IndicatorCases:  {Name: domain.IndicatorCases, UseScaling: true},
			domain.IndicatorDeaths: {Name: domain.IndicatorDeaths, UseScaling: true},
			domain.IndicatorCost:   {Name: domain.IndicatorCost, UseScaling: false},
		},
	}
}

func main() {
	cfg, err := config.Load()
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "allocengine-scheduler").Logger()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	var sink *reportsink.Sink
	if cfg.ReportSinkBucket != "" {
		sink, err = reportsink.New(context.Background(), cfg.ReportSinkBucket, cfg.ReportSinkRegion, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("reportsink unavailable, continuing without upload")
		}
	}

	// Per-portfolio Parameters (modelled countries, indicator tables, the
	// objective) are business configuration loaded separately per disease;
	// loadPortfolioParams stands in for that lookup.
	jobs := []portfolioJob{
		{Name: "hiv", ModelResults: "hiv_model_results", PartnerData: "hiv_partner_data", PFInputData: "hiv_pf_input_data", Params: loadPortfolioParams("hiv")},
		{Name: "tb", ModelResults: "tb_model_results", PartnerData: "tb_partner_data", PFInputData: "tb_pf_input_data", Params: loadPortfolioParams("tb")},
		{Name: "malaria", ModelResults: "malaria_model_results", PartnerData: "malaria_partner_data", PFInputData: "malaria_pf_input_data", Params: loadPortfolioParams("malaria")},
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.SchedulerCron, func() {
		logger.Info().Msg("scheduled portfolio re-run starting")
		runAll(context.Background(), jobs, cfg.SessionCachePath, sink, logger)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid scheduler cron expression")
	}
	c.Start()
	logger.Info().Str("cron", cfg.SchedulerCron).Msg("scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("stopping scheduler")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info().Msg("scheduler stopped")
}
