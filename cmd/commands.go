// commands.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/talentledger/db/migrations"
	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/iam/auth"
	"github.com/Abraxas-365/talentledger/pkg/iam/scopes"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/spf13/cobra"
)

// commandContext is cancelled on SIGINT/SIGTERM
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withContainer builds the container for one command and tears it down after
func withContainer(fn func(ctx context.Context, c *Container) error) error {
	ctx, cancel := commandContext()
	defer cancel()

	c := NewContainer(cfg)
	defer c.Cleanup()

	return fn(ctx, c)
}

// ============================================================================
// migrate
// ============================================================================

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			db, err := openDB(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			applied, err := dbx.Migrate(ctx, db, migrations.Files)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				logx.Info("Database already up to date")
				return nil
			}
			for _, name := range applied {
				logx.Infof("✓ applied %s", name)
			}
			return nil
		},
	}
}

// ============================================================================
// import
// ============================================================================

func importCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Stage and consolidate spreadsheet candidate exports",
	}

	stage := &cobra.Command{
		Use:   "stage [path]",
		Short: "Stage one export file, or every file in the inbox when no path is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *Container) error {
				if len(args) == 1 {
					report, err := c.ImportService.StageFile(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(report)
				}
				report, err := c.ImportService.StageInbox(ctx)
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}

	consolidate := &cobra.Command{
		Use:   "consolidate",
		Short: "Consolidate staged rows into candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *Container) error {
				report, err := c.ImportService.ConsolidatePending(ctx)
				if report != nil {
					if perr := printJSON(report); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the last sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *Container) error {
				st, err := c.ImportService.SyncStatus(ctx)
				if err != nil {
					return err
				}
				return printJSON(st)
			})
		},
	}

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete processed raw rows past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *Container) error {
				n, err := c.ImportService.PurgeProcessed(ctx, olderThan)
				if err != nil {
					return err
				}
				logx.Infof("Purged %d processed rows", n)
				return nil
			})
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 0, "retention window (defaults to the configured one)")

	cmd.AddCommand(stage, consolidate, status, purge)
	return cmd
}

// ============================================================================
// assignments
// ============================================================================

func assignmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assignments",
		Short: "Check and repair talent allocation totals",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Report talents whose cached allocation differs from their assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *Container) error {
				report, err := c.Engine.Validate(ctx)
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute allocation totals for every talent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *Container) error {
				result, err := c.Engine.ReconcileAll(ctx)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}

	integrity := &cobra.Command{
		Use:   "integrity-check",
		Short: "Log mismatches and reconcile them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *Container) error {
				report, err := c.Engine.RunIntegrityCheck(ctx)
				if err != nil {
					return err
				}
				return printJSON(report)
			})
		},
	}

	cmd.AddCommand(validate, reconcile, integrity)
	return cmd
}

// ============================================================================
// hires
// ============================================================================

func hiresCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hires",
		Short: "Reconcile hired candidates against open demand",
	}

	var batchClient string
	process := &cobra.Command{
		Use:   "process",
		Short: "Process every hired candidate without a linked talent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *Container) error {
				var clientID *kernel.ClientID
				if batchClient != "" {
					id := kernel.ClientID(batchClient)
					clientID = &id
				}
				result, err := c.Reconciler.BatchProcess(ctx, clientID)
				if result != nil {
					if perr := printJSON(result); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	process.Flags().StringVar(&batchClient, "client", "", "only candidates of this client")

	var candidateID, clientID string
	hire := &cobra.Command{
		Use:   "hire",
		Short: "Reconcile a single hire",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(func(ctx context.Context, c *Container) error {
				client := kernel.ClientID(clientID)
				if client.IsEmpty() {
					cand, err := c.Candidates.FindByID(ctx, kernel.CandidateID(candidateID))
					if err != nil {
						return err
					}
					if cand.ClientID != nil {
						client = *cand.ClientID
					}
				}
				result, err := c.Reconciler.OnHire(ctx, kernel.CandidateID(candidateID), client)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
	hire.Flags().StringVar(&candidateID, "candidate", "", "candidate id")
	hire.Flags().StringVar(&clientID, "client", "", "client id (defaults to the candidate's client)")
	_ = hire.MarkFlagRequired("candidate")

	cmd.AddCommand(process, hire)
	return cmd
}

// ============================================================================
// token
// ============================================================================

func tokenCommand() *cobra.Command {
	var (
		subject   string
		email     string
		name      string
		scopeList []string
		role      string
		ttl       time.Duration
		service   bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token for an operator or service account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != "" {
				if cmd.Flags().Changed("scope") {
					return fmt.Errorf("--role and --scope are mutually exclusive")
				}
				scopeList = scopes.GetScopesByGroup(role)
				if len(scopeList) == 0 {
					return fmt.Errorf("unknown role %q", role)
				}
			}
			for _, s := range scopeList {
				if !scopes.ValidateScope(s) {
					return fmt.Errorf("unknown scope %q", s)
				}
			}
			for _, granted := range scopeList {
				for _, s := range scopes.ExpandWildcardScope(granted) {
					logx.Infof("grants %s (%s): %s", s, scopes.GetScopeCategory(s), scopes.GetScopeDescription(s))
				}
			}

			tokens := auth.NewJWTServiceFromConfig(&cfg.Auth.JWT)
			token, err := tokens.GenerateAccessToken(kernel.UserID(subject), map[string]any{
				"email":   email,
				"name":    name,
				"scopes":  scopeList,
				"service": service,
				"ttl":     ttl,
			})
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().StringVar(&email, "email", "", "operator email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringSliceVar(&scopeList, "scope", []string{scopes.ScopeAll}, "granted scopes (repeatable)")
	cmd.Flags().StringVar(&role, "role", "", "grant the scopes of a role group (recruiter, staffing_manager, finance, scheduler, ...)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to the configured one)")
	cmd.Flags().BoolVar(&service, "service", false, "mark as a service account")
	return cmd
}
