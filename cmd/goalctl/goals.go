package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"savings/internal/config"
	"savings/internal/core"
	"savings/internal/goals"
	"savings/internal/identity"
)

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your goals, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *goals.Service) error {
				col, err := svc.List(ctx)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), col.Goals)
				}
				printTable(cmd.OutOrStdout(), col.Goals)
				return nil
			})
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *goals.Service) error {
				g, err := svc.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printGoal(cmd.OutOrStdout(), opts, g)
			})
		},
	}
}

func newCreateCmd(opts *options) *cobra.Command {
	var name, target, current, deadline string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *goals.Service) error {
				in, err := parseNewGoal(name, target, current, deadline)
				if err != nil {
					return err
				}
				g, err := svc.Create(ctx, in)
				if err != nil {
					return err
				}
				return printGoal(cmd.OutOrStdout(), opts, g)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Goal name")
	cmd.Flags().StringVar(&target, "target", "", "Target amount, e.g. 1500 or 1500.50")
	cmd.Flags().StringVar(&current, "current", "0", "Amount already saved")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline as YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}

func parseNewGoal(name, target, current, deadline string) (core.NewGoal, error) {
	t, err := core.ParseAmount(target)
	if err != nil {
		return core.NewGoal{}, fmt.Errorf("--target: %w", err)
	}
	c, err := core.ParseAmount(current)
	if err != nil {
		return core.NewGoal{}, fmt.Errorf("--current: %w", err)
	}
	d, err := core.ParseDate(deadline)
	if err != nil {
		return core.NewGoal{}, fmt.Errorf("--deadline: %w", err)
	}
	return core.NewGoal{Name: name, TargetAmount: t, CurrentAmount: c, Deadline: d}, nil
}

func newEditCmd(opts *options) *cobra.Command {
	var name, target, deadline string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Rename, retarget or reschedule a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *goals.Service) error {
				var edits []core.Edit
				if cmd.Flags().Changed("name") {
					edits = append(edits, core.Rename{Name: name})
				}
				if cmd.Flags().Changed("target") {
					t, err := core.ParseAmount(target)
					if err != nil {
						return fmt.Errorf("--target: %w", err)
					}
					edits = append(edits, core.Retarget{TargetAmount: t})
				}
				if cmd.Flags().Changed("deadline") {
					d, err := core.ParseDate(deadline)
					if err != nil {
						return fmt.Errorf("--deadline: %w", err)
					}
					edits = append(edits, core.Reschedule{Deadline: d})
				}
				g, err := svc.Update(ctx, args[0], edits...)
				if err != nil {
					return err
				}
				return printGoal(cmd.OutOrStdout(), opts, g)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&target, "target", "", "New target amount")
	cmd.Flags().StringVar(&deadline, "deadline", "", "New deadline as YYYY-MM-DD")
	return cmd
}

func newAddCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <amount>",
		Short: "Add funds to a goal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *goals.Service) error {
				amount, err := core.ParseContribution(args[1])
				if err != nil {
					return err
				}
				res, err := svc.AddFunds(ctx, args[0], amount)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"event":    res.Event(),
						"previous": res.Previous,
						"goal":     goals.GoalStatus{SavingsGoal: res.Goal, Metrics: res.Metrics},
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added %s to %q: %s of %s (%d%%)\n",
					core.FormatCurrency(amount), res.Goal.Name,
					core.FormatCurrency(res.Goal.CurrentAmount), core.FormatCurrency(res.Goal.TargetAmount),
					res.Metrics.ProgressPercent)
				if res.Outcome == core.OutcomeAchieved {
					fmt.Fprintln(out, "Goal achieved!")
				}
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *goals.Service) error {
				if err := svc.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newTokenCmd(opts *options) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for --user signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if opts.user == "" {
				return fmt.Errorf("--user: %w", core.ErrUnauthenticated)
			}
			tok, err := identity.GenerateToken([]byte(cfg.JWTSecret), opts.user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func printGoal(w io.Writer, opts *options, g goals.GoalStatus) error {
	if opts.json {
		return printJSON(w, g)
	}
	printTable(w, []goals.GoalStatus{g})
	return nil
}

func printTable(w io.Writer, items []goals.GoalStatus) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No goals yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSAVED\tTARGET\tPROGRESS\tDEADLINE\tSTATUS")
	for _, g := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d%%\t%s\t%s\n",
			g.ID, g.Name,
			core.FormatCurrency(g.CurrentAmount), core.FormatCurrency(g.TargetAmount),
			g.Metrics.ProgressPercent, core.FormatDate(g.Deadline), status(g.Metrics))
	}
	tw.Flush()
}

func status(m core.Metrics) string {
	switch {
	case m.IsAchieved:
		return "achieved"
	case m.IsOverdue:
		return "overdue"
	case m.DaysLeft == 0:
		return "due today"
	default:
		return fmt.Sprintf("%d days left", m.DaysLeft)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
