package cli

import (
	"context"
	"fmt"
	"io"

	"billing/internal/logger"
	"billing/pkg/money"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRecheckCmd(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "recheck <invoice-id>",
		Short: "Re-derive an invoice status from its payments",
		Long: `Re-derive the status of an invoice from its recorded payments.

Deleting a payment never moves a paid invoice back; run recheck to do so.
The invoice becomes paid when covered, otherwise overdue past its due date,
otherwise sent.`,
		Example: `  billingctl recheck 7f8a3c0e-6f0d-4a53-9a4c-3f4b1e2d9c10`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInvoiceID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, open, "recheck", func(ctx context.Context, env *Env, out io.Writer) error {
				inv, err := env.Services.Payments.RecheckStatus(ctx, id)
				if err != nil {
					return err
				}
				logger.FromContext(ctx).Info("invoice rechecked", zap.String("invoice_no", inv.InvoiceNo), zap.String("status", string(inv.Status)))
				fmt.Fprintf(out, "%s %s paid=%s total=%s\n", inv.InvoiceNo, inv.Status,
					inv.AmountPaid.StringFixed(money.MinorUnits), inv.TotalAmount.StringFixed(money.MinorUnits))
				return nil
			})
		},
	}
}

func newRecomputeCmd(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:     "recompute <invoice-id>",
		Short:   "Rewrite amount_paid from the invoice's payment rows",
		Example: `  billingctl recompute 7f8a3c0e-6f0d-4a53-9a4c-3f4b1e2d9c10`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInvoiceID(args[0])
			if err != nil {
				return err
			}
			return withEnv(cmd, open, "recompute", func(ctx context.Context, env *Env, out io.Writer) error {
				sum, err := env.Services.Payments.Recompute(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s amount_paid=%s\n", id, sum.StringFixed(money.MinorUnits))
				return nil
			})
		},
	}
}

func newSweepOverdueCmd(open OpenFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark sent invoices past their due date as overdue",
		Example: `  billingctl sweep-overdue
  billingctl sweep-overdue --as-of 2026-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := asOf(cmd)
			if err != nil {
				return err
			}
			return withEnv(cmd, open, "sweep-overdue", func(ctx context.Context, env *Env, out io.Writer) error {
				moved, err := env.Services.Documents.MarkOverdue(ctx, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d invoice(s) marked overdue\n", moved)
				return nil
			})
		},
	}
	cmd.Flags().String("as-of", "", "Reference date (format: YYYY-MM-DD, default: now)")
	return cmd
}

func newExpireQuotesCmd(open OpenFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire-quotes",
		Short: "Expire sent quotes past their validity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := asOf(cmd)
			if err != nil {
				return err
			}
			return withEnv(cmd, open, "expire-quotes", func(ctx context.Context, env *Env, out io.Writer) error {
				moved, err := env.Services.Documents.ExpireQuotes(ctx, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d quote(s) expired\n", moved)
				return nil
			})
		},
	}
	cmd.Flags().String("as-of", "", "Reference date (format: YYYY-MM-DD, default: now)")
	return cmd
}
