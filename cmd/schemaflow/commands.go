package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemaflow/schemaflow/internal/merge"
	"github.com/schemaflow/schemaflow/internal/migration"
	"github.com/schemaflow/schemaflow/internal/repo"
	"github.com/schemaflow/schemaflow/internal/validation"
	"github.com/schemaflow/schemaflow/pkg/schema"
)

func branchCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Create, list, inspect and delete schema branches",
	}

	var parent string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a branch forked from a parent's current schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, pub, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			svc := repo.NewService(st, pub, app.logger)
			b, err := svc.CreateBranch(cmd.Context(), args[0], parent)
			if err != nil {
				return err
			}
			return printJSON(b)
		},
	}
	create.Flags().StringVar(&parent, "from", "main", "parent branch to fork from")

	list := &cobra.Command{
		Use:   "list",
		Short: "List every branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, pub, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			svc := repo.NewService(st, pub, app.logger)
			branches, err := svc.ListBranches(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(branches)
		},
	}

	var force bool
	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, pub, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			svc := repo.NewService(st, pub, app.logger)
			if err := svc.DeleteBranch(cmd.Context(), args[0], force); err != nil {
				return err
			}
			app.logger.Infof("Branch %s deleted", args[0])
			return nil
		},
	}
	del.Flags().BoolVar(&force, "force", false, "delete even when the branch has commits")

	history := &cobra.Command{
		Use:   "log <name>",
		Short: "Show a branch's commit history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, pub, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			svc := repo.NewService(st, pub, app.logger)
			commits, err := svc.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(commits)
		},
	}

	cmd.AddCommand(create, list, del, history)
	return cmd
}

func validateCommand(app *appContext) *cobra.Command {
	var (
		target  string
		scope   string
		impact  bool
		noWarns bool
	)
	cmd := &cobra.Command{
		Use:   "validate <source-branch>",
		Short: "Check a source branch against a target for breaking changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, pub, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			engine := validation.NewEngine(st, app.newRegistry(), pub, app.logger)
			result, err := engine.Validate(cmd.Context(), validation.Request{
				SourceBranch:          args[0],
				TargetBranch:          target,
				IncludeWarnings:       !noWarns,
				IncludeImpactAnalysis: impact,
				Scope:                 scope,
			})
			if err != nil {
				return err
			}
			if err := printJSON(result); err != nil {
				return err
			}
			if !result.Valid {
				return fmt.Errorf("%d breaking changes found", len(result.BreakingChanges))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "into", "main", "target branch to validate against")
	cmd.Flags().StringVar(&scope, "scope", "", "rule scope to load (constraints, structural; default all)")
	cmd.Flags().BoolVar(&impact, "impact", false, "estimate data impact per breaking change")
	cmd.Flags().BoolVar(&noWarns, "no-warnings", false, "omit non-breaking warnings")
	return cmd
}

func mergeCommand(app *appContext) *cobra.Command {
	var (
		target      string
		base        string
		autoResolve bool
		dryRun      bool
		evaluate    bool
	)
	cmd := &cobra.Command{
		Use:   "merge <source-branch>",
		Short: "Three-way merge a source branch into a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, pub, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			repoSvc := repo.NewService(st, pub, app.logger)
			engine := merge.NewEngine(st, repoSvc, app.logger)
			req := merge.Request{
				SourceBranch: args[0],
				TargetBranch: target,
				BaseBranch:   base,
				AutoResolve:  autoResolve,
				DryRun:       dryRun,
			}

			if evaluate {
				validator := validation.NewEngine(st, app.newRegistry(), pub, app.logger)
				eval, err := merge.NewEvaluator(engine, validator).EvaluateMerge(cmd.Context(), req)
				if err != nil {
					return err
				}
				if err := printJSON(eval); err != nil {
					return err
				}
				if !eval.Clean() {
					return errors.New("merge evaluation found conflicts or breaking changes")
				}
				return nil
			}

			result, err := engine.Merge(cmd.Context(), req)
			if err != nil {
				return err
			}
			if err := printJSON(result); err != nil {
				return err
			}
			if result.Status != schema.MergeSuccess {
				return errors.New("merge has unresolved conflicts")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "into", "main", "target branch to merge into")
	cmd.Flags().StringVar(&base, "base", "main", "common ancestor branch for the three-way merge")
	cmd.Flags().BoolVar(&autoResolve, "auto-resolve", false, "attempt safe-direction auto-resolution of conflicts")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the merge without committing")
	cmd.Flags().BoolVar(&evaluate, "evaluate", false, "dry-run the merge and validate in one pass")
	return cmd
}

func planCommand(app *appContext) *cobra.Command {
	var (
		target    string
		batchSize int
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "plan <source-branch>",
		Short: "Generate a migration plan for merging a source branch",
		Long: `plan validates the source branch against the target with impact
analysis enabled, then turns the resulting breaking changes into an
ordered migration plan with mirrored rollback steps. A source with no
breaking changes needs no plan and the command says so.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, pub, err := app.openStore(cmd.Context())
			if err != nil {
				return err
			}
			engine := validation.NewEngine(st, app.newRegistry(), pub, app.logger)
			result, err := engine.Validate(cmd.Context(), validation.Request{
				SourceBranch:          args[0],
				TargetBranch:          target,
				IncludeImpactAnalysis: true,
			})
			if err != nil {
				return err
			}
			if len(result.BreakingChanges) == 0 {
				app.logger.Infof("No breaking changes between %s and %s, nothing to plan", args[0], target)
				return nil
			}

			planner := migration.NewPlanner(app.logger)
			plan, err := planner.Generate(cmd.Context(), result.BreakingChanges, target, migration.Options{
				BatchSize:       batchSize,
				ParallelWorkers: workers,
			})
			if err != nil {
				return err
			}
			return printJSON(plan)
		},
	}
	cmd.Flags().StringVar(&target, "into", "main", "target branch the plan migrates")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per migration batch (0 uses the default)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers per step (0 uses the default)")
	return cmd
}
