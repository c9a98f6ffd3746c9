package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ttahub/goalmerge"
	"github.com/ttahub/goalmerge/internal/application"
	"github.com/ttahub/goalmerge/internal/config"
	"github.com/ttahub/goalmerge/internal/infrastructure/providers"
	"github.com/ttahub/goalmerge/internal/service"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ttamerge",
	Short: "Goal and objective dedup plus collaborator attribution batch jobs",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()
		if err := providers.MigrateDatabase(env.db); err != nil {
			return err
		}
		return env.ledger().Seed(cmd.Context())
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Collapse duplicate rows into their survivors",
}

var mergeObjectivesCmd = &cobra.Command{
	Use:   "objectives",
	Short: "Merge duplicate objectives per goal",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		app := application.NewMergeApplication(env.db, env.conf.Batch, env.logger)
		outcome, err := app.RunObjectives(cmd.Context())
		if err != nil {
			return err
		}
		if outcome.Failed > 0 {
			return fmt.Errorf("%d merge sets failed", outcome.Failed)
		}
		return nil
	},
}

var mergeReportObjectivesCmd = &cobra.Command{
	Use:   "aros",
	Short: "Merge duplicate activity report objectives per report",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		app := application.NewMergeApplication(env.db, env.conf.Batch, env.logger)
		outcome, err := app.RunReportObjectives(cmd.Context())
		if err != nil {
			return err
		}
		if outcome.Failed > 0 {
			return fmt.Errorf("%d merge sets failed", outcome.Failed)
		}
		return nil
	},
}

var collabCmd = &cobra.Command{
	Use:   "collab",
	Short: "Maintain the goal collaborator ledger",
}

var collabSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the goal collaborator vocabulary",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		return env.ledger().Seed(cmd.Context())
	},
}

var collabDeriveCmd = &cobra.Command{
	Use:   "derive <goalID>...",
	Short: "Recompute collaborator facts from the audit trail",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goalIDs, err := parseIDs(args)
		if err != nil {
			return err
		}

		env, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		_, err = env.ledger().Derive(cmd.Context(), goalIDs)
		return err
	},
}

var (
	removeReports   []int64
	removeGoalLinks []int64
)

var collabRemoveCmd = &cobra.Command{
	Use:   "remove <goalID> <typeName>",
	Short: "Withdraw evidence from a goal's facts of one type",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		goalID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid goal id %q", args[0])
		}

		lb := goalmerge.LinkBack{}
		if len(removeReports) > 0 {
			lb.Add(goalmerge.EvidenceActivityReports, removeReports...)
		}
		if len(removeGoalLinks) > 0 {
			lb.Add(goalmerge.EvidenceGoals, removeGoalLinks...)
		}

		env, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		return env.ledger().Remove(cmd.Context(), goalID, args[1], lb)
	},
}

var collabPropagateCmd = &cobra.Command{
	Use:   "propagate <deprecatedGoalID>...",
	Short: "Copy collaborator facts from merged-away goals onto their survivors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		goalIDs, err := parseIDs(args)
		if err != nil {
			return err
		}

		env, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close()

		ledger := env.ledger()
		for _, goalID := range goalIDs {
			if _, err := ledger.Propagate(cmd.Context(), goalID); err != nil {
				return err
			}
		}
		return nil
	},
}

type environment struct {
	conf          config.Config
	db            *gorm.DB
	logger        *slog.Logger
	locker        *service.RedisLocker
	traceShutdown func(context.Context) error
}

func setup(ctx context.Context) (*environment, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	traceShutdown, err := providers.SetupTraceProvider(ctx, conf.Server)
	if err != nil {
		return nil, err
	}

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		return nil, err
	}

	rdb := providers.NewRedis(conf.Server)
	locker := service.NewRedisLocker(rdb, time.Duration(conf.Batch.LockTTLSeconds)*time.Second)

	return &environment{
		conf:          conf,
		db:            db,
		logger:        logger,
		locker:        locker,
		traceShutdown: traceShutdown,
	}, nil
}

func (env *environment) ledger() *application.LedgerApplication {
	return application.NewLedgerApplication(env.db, env.locker, env.logger)
}

func (env *environment) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := env.traceShutdown(ctx); err != nil {
		env.logger.Warn("trace shutdown failed", slog.String("error", err.Error()))
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid goal id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file path")

	collabRemoveCmd.Flags().Int64SliceVar(&removeReports, "reports", nil, "activity report ids to withdraw")
	collabRemoveCmd.Flags().Int64SliceVar(&removeGoalLinks, "goals", nil, "goal evidence ids to withdraw")

	mergeCmd.AddCommand(mergeObjectivesCmd, mergeReportObjectivesCmd)
	collabCmd.AddCommand(collabSeedCmd, collabDeriveCmd, collabRemoveCmd, collabPropagateCmd)
	rootCmd.AddCommand(migrateCmd, mergeCmd, collabCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
