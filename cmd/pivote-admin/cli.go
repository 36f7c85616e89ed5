package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pivote/backend/internal/auth"
	"github.com/pivote/backend/internal/models"
	"github.com/pivote/backend/internal/services"
)

type adminService interface {
	PublishResults(ctx context.Context, cmds []services.PublishResultCmd) []services.PublishReport
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.LedgerEntry, error)
	GrantPoints(ctx context.Context, userID uuid.UUID, points int64, reason string) (*models.User, error)
}

type tokenIssuer interface {
	IssueToken(userID uuid.UUID, role string) (string, error)
}

// env holds how each command reaches its dependencies, so tests can swap them.
type env struct {
	open    func(ctx context.Context) (adminService, func(), error)
	migrate func(ctx context.Context) error
	issuer  func() (tokenIssuer, error)
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "pivote-admin",
		Short:         "Back-office tasks for the Pivote backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCmd(e),
		publishCmd(e),
		historyCmd(e),
		grantCmd(e),
		tokenCmd(e),
	)
	return root
}

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply River and application migrations to PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

// publishCmd settles one or more projects with the same result.
// Usage: pivote-admin publish --result yes <project-id> [<project-id> ...]
func publishCmd(e *env) *cobra.Command {
	var result string
	cmd := &cobra.Command{
		Use:   "publish <project-id>...",
		Short: "Publish a result for one or more projects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt := models.Option(result)
			if !opt.Valid() {
				return fmt.Errorf("--result must be yes or no, got %q", result)
			}
			cmds := make([]services.PublishResultCmd, 0, len(args))
			for _, a := range args {
				id, err := uuid.Parse(a)
				if err != nil {
					return fmt.Errorf("invalid project id %q", a)
				}
				cmds = append(cmds, services.PublishResultCmd{ProjectID: id, Result: opt, Admin: true})
			}

			svc, closeFn, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			reports := svc.PublishResults(cmd.Context(), cmds)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROJECT\tSTATUS\tWINNERS\tLOSERS\tREWARDS\tREMAINING")
			var failed int
			for _, r := range reports {
				if r.Err != nil {
					failed++
					fmt.Fprintf(tw, "%s\terror: %v\t-\t-\t-\t-\n", r.ProjectID, r.Err)
					continue
				}
				s := r.Outcome.Summary
				fmt.Fprintf(tw, "%s\tsettled\t%d\t%d\t%d\t%d\n", r.ProjectID, s.Winners, s.Losers, s.RewardsToOthers, s.Remaining)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d projects failed", failed, len(reports))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&result, "result", "", "winning option: yes or no")
	_ = cmd.MarkFlagRequired("result")
	return cmd
}

func historyCmd(e *env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <user-id>",
		Short: "Print a user's point history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			svc, closeFn, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := svc.History(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTYPE\tDELTA\tFROZEN\tBALANCE\tDESCRIPTION")
			for _, en := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%+d\t%+d\t%d\t%s\n",
					en.CreatedAt.Format("2006-01-02 15:04:05"), en.Type, en.Delta, en.FrozenDelta, en.BalanceAfter, en.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries (0 for all)")
	return cmd
}

func grantCmd(e *env) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "grant <user-id> <points>",
		Short: "Credit points to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			points, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || points <= 0 {
				return errors.New("points must be a positive integer")
			}
			svc, closeFn, err := e.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			u, err := svc.GrantPoints(cmd.Context(), id, points, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d points (%d available)\n", u.ID, u.TotalPoints, u.Available())
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "description recorded in the user's history")
	return cmd
}

// tokenCmd mints a bearer token for a user, for local testing and support.
func tokenCmd(e *env) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			iss, err := e.issuer()
			if err != nil {
				return err
			}
			tok, err := iss.IssueToken(id, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", auth.RoleUser, "token role: user or admin")
	return cmd
}
