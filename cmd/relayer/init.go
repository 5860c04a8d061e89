package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbirdge/btcrelay/internal/config"
	sdk "github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana"
	models "github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana/models"
)

// newInitCmd returns a Cobra command that anchors the relay at a
// trusted genesis header, locally and on chain.
func newInitCmd() *cobra.Command {
	var (
		headerHex string
		height    uint32
		hashHex   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the relay at a genesis header",
		Long: `Anchors the relay at a trusted Bitcoin block header. The local store is
seeded first; unless --local-only is set, the program's initialize
handler is then invoked and the transaction signature printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg := config.FromViper()

			raw, err := hex.DecodeString(headerHex)
			if err != nil {
				return fmt.Errorf("decode genesis header: %w", err)
			}
			hashBytes, err := hex.DecodeString(hashHex)
			if err != nil || len(hashBytes) != 32 {
				return fmt.Errorf("genesis hash must be 32 hex-encoded bytes")
			}
			var genesisHash [32]byte
			copy(genesisHash[:], hashBytes)

			engine, st, err := openRelay(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := engine.Initialize(raw, height, genesisHash); err != nil {
				return fmt.Errorf("initialize local relay: %w", err)
			}
			logger.Info("local relay initialized", "height", height)

			if cfg.LocalOnly {
				return nil
			}

			client := sdk.NewClient(cfg.RPCURL, cfg.ProgramID)
			payerKey, err := ensurePayer(cmd.Context(), client, cfg, logger)
			if err != nil {
				return err
			}

			sig, err := client.Initialize(cmd.Context(), models.InitializeRequest{
				PayerPrivateKey: payerKey,
				GenesisHeader:   raw,
				GenesisHeight:   height,
				GenesisHash:     genesisHash,
			})
			if err != nil {
				return fmt.Errorf("initialize on-chain relay: %w", err)
			}
			fmt.Println("Your transaction signature", sig)
			return nil
		},
	}

	cmd.Flags().StringVar(&headerHex, "header", "", "80-byte genesis header, hex encoded")
	cmd.Flags().Uint32Var(&height, "height", 0, "genesis block height")
	cmd.Flags().StringVar(&hashHex, "hash", "", "genesis block hash (internal byte order, hex)")
	cmd.MarkFlagRequired("header")
	cmd.MarkFlagRequired("height")
	cmd.MarkFlagRequired("hash")
	return cmd
}

// ensurePayer returns the configured payer key, or on clusters with a
// faucet generates a throwaway keypair and funds it by airdrop.
func ensurePayer(ctx context.Context, client *sdk.Client, cfg config.Config, logger *slog.Logger) (string, error) {
	if cfg.PayerKey != "" {
		return cfg.PayerKey, nil
	}
	network := sdk.Network(cfg.Network)
	if network != sdk.NetworkLocalnet && network != sdk.NetworkDevnet {
		return "", fmt.Errorf("payer-key is required on %s", cfg.Network)
	}

	account := client.CreateAccount()
	logger.Info("generated payer account", "public_key", account.PublicKey)

	sig, err := client.RequestAirdrop(ctx, models.AirdropRequest{
		PublicKey: account.PublicKey,
		Lamports:  1_000_000_000, // 1 SOL
	})
	if err != nil {
		return "", fmt.Errorf("airdrop to payer: %w", err)
	}
	logger.Info("airdrop requested", "signature", sig)

	// Give the faucet transaction a moment to land before the payer
	// signs anything.
	for i := 0; i < 15; i++ {
		bal, err := client.GetBalance(ctx, models.BalanceRequest{PublicKey: account.PublicKey})
		if err == nil && bal > 0 {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return account.PrivateKey, nil
}
