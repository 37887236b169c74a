package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cacheplan/internal/batch"
	"cacheplan/internal/opt"
	"cacheplan/internal/store"
)

var (
	inputDir   string
	outputDir  string
	workers    int
	heuristics []string
	iterations int
	strength   int
	seed       int64
	persist    bool
)

// solveCmd optimizes instance files and writes output_<name>.txt submissions
var solveCmd = &cobra.Command{
	Use:   "solve [instance.in ...]",
	Short: "Optimize instance files (default: every *.in in --input-dir)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("input-dir") {
			cfg.Batch.InputDir = inputDir
		}
		if flags.Changed("output-dir") {
			cfg.Batch.OutputDir = outputDir
		}
		if flags.Changed("workers") {
			cfg.Batch.Workers = workers
		}
		if flags.Changed("heuristics") {
			cfg.Optimizer.Heuristics = nil
			for _, name := range heuristics {
				h, err := opt.ParseHeuristic(name)
				if err != nil {
					return err
				}
				cfg.Optimizer.Heuristics = append(cfg.Optimizer.Heuristics, h)
			}
		}
		if flags.Changed("iterations") {
			cfg.Optimizer.IterationBudget = iterations
		}
		if flags.Changed("strength") {
			cfg.Optimizer.PerturbationStrength = strength
		}
		if flags.Changed("seed") {
			cfg.Optimizer.RandomSeed = seed
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if persist && cfg.Storage.DatabaseURL == "" {
			return fmt.Errorf("--persist needs a database: set DATABASE_URL or storage.databaseURL")
		}

		paths := args
		if len(paths) == 0 {
			if paths, err = batch.Discover(cfg.Batch.InputDir); err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no *.in files in %s", cfg.Batch.InputDir)
			}
		}

		r := &batch.Runner{Config: cfg.Optimizer, OutputDir: cfg.Batch.OutputDir, Workers: cfg.Batch.Workers, Log: log}
		if persist {
			pg, err := store.NewPostgres(cfg.Storage.DatabaseURL)
			if err != nil {
				return err
			}
			defer pg.Close()
			if cfg.Storage.Migrate {
				if err := pg.Migrate(cmd.Context()); err != nil {
					return err
				}
			}
			r.Store = pg
		}

		sum, err := r.Run(cmd.Context(), paths)
		for _, res := range sum.Results {
			log.WithFields(logrus.Fields{
				"instance":  res.Name,
				"smallest":  res.BaselineScore,
				"optimized": res.Score,
				"gain":      fmt.Sprintf("%+d (%.2f%%)", res.Improvement, res.ImprovementPct),
			}).Info("comparison")
		}
		log.WithFields(logrus.Fields{"solved": len(sum.Results), "failed": sum.Failed}).Info("batch complete")
		return err
	},
}

func init() {
	f := solveCmd.Flags()
	f.StringVar(&inputDir, "input-dir", "input", "Directory scanned for *.in files when no files are given")
	f.StringVar(&outputDir, "output-dir", "output", "Directory for output_<name>.txt submissions")
	f.IntVar(&workers, "workers", 1, "Instances optimized concurrently")
	f.StringSliceVar(&heuristics, "heuristics", nil, "Construction heuristics: "+fmt.Sprint(opt.Heuristics()))
	f.IntVar(&iterations, "iterations", opt.DefaultIterationBudget, "Local search iteration budget")
	f.IntVar(&strength, "strength", opt.DefaultPerturbationStrength, "Perturbation strength")
	f.Int64Var(&seed, "seed", opt.DefaultRandomSeed, "Random seed")
	f.BoolVar(&persist, "persist", false, "Save runs to DATABASE_URL")
}
