package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"scratch-card.backend/internal/infrastructure/blockchain"
	"scratch-card.backend/pkg/wei"
)

func statusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show owner, price, balance and pending rewards of the contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd.Context())
			defer cancel()
			c, closeFn, err := a.contract()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := c.EnsureDeployed(ctx); err != nil {
				return err
			}

			var (
				owner                   common.Address
				latest                  uint64
				price, balance, pending *big.Int
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) { owner, err = c.Owner(gctx); return })
			g.Go(func() (err error) { latest, err = c.LatestBlock(gctx); return })
			g.Go(func() (err error) { price, err = c.ScratchPrice(gctx); return })
			g.Go(func() (err error) { balance, err = c.ContractBalance(gctx); return })
			g.Go(func() (err error) { pending, err = c.TotalPendingRewards(gctx); return })
			if err := g.Wait(); err != nil {
				return err
			}
			chainID, err := c.ChainID(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "contract:        %s\n", c.Address().Hex())
			fmt.Fprintf(out, "network:         %s (chain %s)\n", blockchain.NetworkName(chainID), chainID)
			fmt.Fprintf(out, "latest block:    %d\n", latest)
			fmt.Fprintf(out, "owner:           %s\n", owner.Hex())
			printEth(out, "scratch price:", price)
			printEth(out, "balance:", balance)
			printEth(out, "pending rewards:", pending)
			return nil
		},
	}
}

func claimStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "claim-status <address>",
		Short: "Show claimable, claimed and last reward of a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}
			ctx, cancel := a.context(cmd.Context())
			defer cancel()
			c, closeFn, err := a.contract()
			if err != nil {
				return err
			}
			defer closeFn()

			status, err := c.ClaimStatus(ctx, common.HexToAddress(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "player:          %s\n", common.HexToAddress(args[0]).Hex())
			printEth(out, "claimable:", status.Claimable)
			printEth(out, "claimed:", status.Claimed)
			printEth(out, "last reward:", status.LastReward)
			return nil
		},
	}
}

func setPriceCommand(a *app) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "set-price <eth>",
		Short: "Set the scratch price (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := wei.ParseEther(args[0])
			if err != nil {
				return fmt.Errorf("invalid price: %w", err)
			}
			return a.ownerWrite(cmd, key, "setScratchPrice", func(ctx context.Context, c scratchCardAPI, signer *ecdsa.PrivateKey) (*blockchain.PendingTx, error) {
				return c.SetScratchPrice(ctx, signer, price)
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "owner private key (defaults to BATCH_ADMIN_PRIVATE_KEY)")
	return cmd
}

func withdrawCommand(a *app) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "withdraw <eth>",
		Short: "Withdraw profit above pending rewards (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := wei.ParseEther(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			return a.ownerWrite(cmd, key, "withdrawProfit", func(ctx context.Context, c scratchCardAPI, signer *ecdsa.PrivateKey) (*blockchain.PendingTx, error) {
				return c.WithdrawProfit(ctx, signer, amount)
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "owner private key (defaults to BATCH_ADMIN_PRIVATE_KEY)")
	return cmd
}

// ownerWrite submits one owner transaction and waits for it to be mined.
func (a *app) ownerWrite(cmd *cobra.Command, key, op string, send func(context.Context, scratchCardAPI, *ecdsa.PrivateKey) (*blockchain.PendingTx, error)) error {
	signer, err := a.signingKey(key)
	if err != nil {
		return err
	}
	ctx, cancel := a.context(cmd.Context())
	defer cancel()
	c, closeFn, err := a.contract()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := c.EnsureDeployed(ctx); err != nil {
		return err
	}
	pending, err := send(ctx, c, signer)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s submitted: %s\n", op, pending.Hash.Hex())
	receipt, err := pending.Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s mined in block %s\n", op, receipt.BlockNumber)
	return nil
}

func printEth(out io.Writer, label string, n *big.Int) {
	fmt.Fprintf(out, "%-16s %s ETH (%s wei)\n", label, wei.FormatEther(n), wei.String(n))
}
