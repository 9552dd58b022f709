package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/Strob0t/rentledger/internal/adapter/postgres"
	"github.com/Strob0t/rentledger/internal/config"
	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/ledger"
	"github.com/Strob0t/rentledger/internal/middleware"
	"github.com/Strob0t/rentledger/internal/service"
)

// minAPIKeyLen rejects keys too short to resist guessing.
const minAPIKeyLen = 16

func newAdminCmd(flags func() config.CLIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands",
	}
	cmd.AddCommand(newHashKeyCmd(), newLedgerCmd(flags))
	return cmd
}

func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key",
		Short: "Hash an API key for auth.api_key_hashes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := promptPassword("API key: ")
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}
			confirm, err := promptPassword("Confirm API key: ")
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}
			if key != confirm {
				return errors.New("keys do not match")
			}
			hash, err := hashAPIKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func hashAPIKey(key string) (string, error) {
	if len(key) < minAPIKeyLen {
		return "", fmt.Errorf("api key must be at least %d characters", minAPIKeyLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(hash), nil
}

func newLedgerCmd(flags func() config.CLIFlags) *cobra.Command {
	var workspace, tenantID, asOf string
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Print a tenant's ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, flush, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer flush()
			if cfg.Storage.Driver != "postgres" {
				return errors.New("admin ledger requires storage.driver postgres")
			}

			wid, err := uuid.Parse(workspace)
			if err != nil {
				return fmt.Errorf("invalid workspace id %q", workspace)
			}
			ctx := middleware.WithWorkspaceID(cmd.Context(), wid.String())
			pool, err := postgres.NewPool(ctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			mode, err := ledger.ParseMonthMode(cfg.Ledger.MonthMode)
			if err != nil {
				return err
			}
			ledgers := service.NewLedgerService(postgres.NewStore(pool), nil, nil,
				ledger.Options{Mode: mode, StopAtLeaseEnd: cfg.Ledger.StopAtLeaseEnd}, cfg.Cache.LedgerTTL)

			l, err := readLedger(ctx, ledgers, tenantID, asOf)
			if err != nil {
				return err
			}
			return printLedger(cmd.OutOrStdout(), l, cfg.Ledger.Currency)
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", middleware.DefaultWorkspaceID, "workspace id")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "compute as of YYYY-MM-DD instead of today")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func readLedger(ctx context.Context, ledgers *service.LedgerService, tenantID, asOf string) (*ledger.Ledger, error) {
	if asOf == "" {
		return ledgers.ForTenant(ctx, tenantID)
	}
	t, err := domain.ParseDate("as-of", asOf)
	if err != nil {
		return nil, err
	}
	return ledgers.AsOf(ctx, tenantID, t)
}

func printLedger(out io.Writer, l *ledger.Ledger, currency string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	last := "-"
	if l.LastPayment != nil {
		last = l.LastPayment.Format("2006-01-02")
	}
	rows := [][2]string{
		{"TENANT", l.TenantID},
		{"AS OF", l.AsOf.Format("2006-01-02")},
		{"MONTHLY RENT", l.MonthlyRent.StringFixed(2) + " " + currency},
		{"MONTHS ELAPSED", fmt.Sprint(l.MonthsElapsed)},
		{"TOTAL OWED", l.TotalOwed.StringFixed(2)},
		{"TOTAL PAID", l.TotalPaid.StringFixed(2)},
		{"BALANCE", l.Balance.StringFixed(2)},
		{"CREDIT", l.Credit.StringFixed(2)},
		{"MONTHS BEHIND", fmt.Sprint(l.MonthsBehind)},
		{"STATUS", string(l.Status)},
		{"PAYMENTS", fmt.Sprint(l.PaymentCount)},
		{"LAST PAYMENT", last},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", r[0], r[1])
	}
	return w.Flush()
}

// promptPassword reads a secret from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
