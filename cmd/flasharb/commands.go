package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fd1az/flashloan-arb/business/execution"
	"github.com/fd1az/flashloan-arb/business/execution/domain"
	ledgerDI "github.com/fd1az/flashloan-arb/business/ledger/di"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
)

// withRuntime starts the application, runs fn and tears everything down.
func withRuntime(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, rt *runtime) error) error {
	ctx := cmd.Context()

	rt, err := start(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	err = fn(ctx, rt)
	if err != nil {
		rt.log.Error(ctx, "command failed", "command", cmd.Name(), "error", err, "code", apperror.GetCode(err))
	}
	rt.wait(ctx)
	return err
}

func newExecuteCmd(opts *rootOptions) *cobra.Command {
	var (
		principal string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Quote and run one flash loan cycle across the configured legs",
		Long: `Borrows the principal, buys on the buy leg, sells on the sell leg and
repays the lender in one atomic transaction. The cycle is skipped when the
quote does not clear the configured margin, unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				amount, err := execution.PrincipalFromConfig(rt.cfg, rt.buy.TokenIn, principal)
				if err != nil {
					return err
				}

				preview, outcome, err := rt.service.RunCycle(ctx, rt.buy, rt.sell, amount, force)
				if err != nil {
					return err
				}
				if outcome == nil {
					rt.log.Info(ctx, "cycle skipped", "reason", preview.Reason)
					return nil
				}
				if !outcome.Committed {
					return fmt.Errorf("attempt %s ended %s: %w", outcome.AttemptID, outcome.State, outcomeErr(outcome))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "principal to borrow, in units of the buy leg's input token (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "submit even when the quote is below the margin")
	return cmd
}

func newLegCmd(opts *rootOptions) *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:       "leg buy|sell",
		Short:     "Execute a single configured leg with the executor's own funds",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"buy", "sell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				leg := rt.buy
				if strings.EqualFold(args[0], "sell") {
					leg = rt.sell
				}

				in, err := legAmount(rt.cfg, leg, amount)
				if err != nil {
					return err
				}

				if rt.cfg.Ledger.Mode == config.LedgerModeSimulated {
					l := ledgerDI.GetSimulatedLedger(rt.services())
					l.Fund(l.Executor(), leg.TokenIn.Address(), in.Raw())
					rt.log.Info(ctx, "funded simulated executor", "amount", in.String())
				}

				res, err := rt.service.ExecuteSingleLeg(ctx, leg, in)
				if err != nil {
					return err
				}
				rt.log.Info(ctx, "leg executed",
					"amount_in", res.AmountIn.String(),
					"amount_out", res.AmountOut.String(),
					"deviation_bps", res.DeviationBps,
					"tx", res.TxHash.Hex(),
				)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "input amount in units of the leg's input token (default: the configured principal)")
	return cmd
}

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	var principal string

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price the configured cycle without submitting anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *runtime) error {
				amount, err := execution.PrincipalFromConfig(rt.cfg, rt.buy.TokenIn, principal)
				if err != nil {
					return err
				}
				plan, err := rt.service.BuildPlan(rt.buy, rt.sell)
				if err != nil {
					return err
				}
				_, err = rt.service.QuotePlan(ctx, plan, amount)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&principal, "principal", "", "principal to quote (default from config)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flasharb %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}

// legAmount defaults a single-leg input to the configured principal,
// read in units of the leg's input token.
func legAmount(cfg *config.Config, leg domain.Leg, override string) (asset.Amount, error) {
	if override != "" {
		return asset.ParseString(leg.TokenIn, override)
	}
	return execution.PrincipalFromConfig(cfg, leg.TokenIn, "")
}

func outcomeErr(o *domain.ExecutionOutcome) error {
	if o.Err != nil {
		return o.Err
	}
	if o.RevertCode != "" {
		return apperror.New(o.RevertCode, apperror.WithContext(o.RevertReason))
	}
	return errors.New("not committed")
}
