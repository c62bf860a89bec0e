package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/humanbelnik/boardmate/internal/app"
	"github.com/humanbelnik/boardmate/internal/config"
	"github.com/humanbelnik/boardmate/internal/contention"
	usecase_admission "github.com/humanbelnik/boardmate/internal/usecase/admission"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const strategyBoth = "both"

func main() {
	maxOccupancy := flag.Int("max", 4, "room capacity including the host")
	users := flag.Int("users", 100, "number of concurrent joiners")
	strategy := flag.String("strategy", strategyBoth, "pessimistic | optimistic | both")
	workers := flag.Int("workers", 32, "joins in flight at once")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if *workers < 1 {
		log.Fatal().Int("workers", *workers).Msg("workers must be at least 1")
	}

	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	transactor, closeStorage := app.OpenStorage(cfg)

	logger := log.With().Str("component", "contention").Logger()
	services := map[string]usecase_admission.Service{
		usecase_admission.StrategyPessimistic: usecase_admission.NewPessimistic(transactor, nil, logger),
		usecase_admission.StrategyOptimistic:  usecase_admission.NewOptimistic(transactor, nil, logger, cfg.Admission.MaxRetry),
	}

	names := []string{*strategy}
	if *strategy == strategyBoth {
		names = []string{usecase_admission.StrategyPessimistic, usecase_admission.StrategyOptimistic}
	}

	params := contention.Params{MaxOccupancy: *maxOccupancy, Users: *users, Workers: *workers}
	exitCode := 0
	for _, name := range names {
		svc, ok := services[name]
		if !ok {
			log.Error().Str("strategy", name).Msg("unknown strategy")
			exitCode = 2
			continue
		}

		report, err := contention.Run(ctx, transactor, svc, name, params)
		if err != nil {
			log.Error().Err(err).Str("strategy", name).Msg("run failed")
			exitCode = 1
			continue
		}
		fmt.Println(report)
		if !report.Consistent() {
			fmt.Printf("  occupancy %d does not match %d participant rows\n", report.FinalOccupancy, report.ParticipantRows)
		}
	}

	if err := closeStorage(); err != nil {
		log.Error().Err(err).Msg("failed to close storage")
	}
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
