package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbirdge/btcrelay/internal/config"
)

// newVerifyCmd returns a Cobra command that SPV-verifies a transaction
// against the local relay.
func newVerifyCmd() *cobra.Command {
	var (
		height        uint32
		index         uint64
		txidHex       string
		headerHex     string
		proofHex      string
		confirmations uint64
		insecure      bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a transaction's inclusion in the relayed chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg := config.FromViper()

			txidBytes, err := hex.DecodeString(txidHex)
			if err != nil || len(txidBytes) != 32 {
				return fmt.Errorf("txid must be 32 hex-encoded bytes")
			}
			var txid [32]byte
			copy(txid[:], txidBytes)

			raw, err := hex.DecodeString(headerHex)
			if err != nil {
				return fmt.Errorf("decode header: %w", err)
			}
			proof, err := hex.DecodeString(proofHex)
			if err != nil {
				return fmt.Errorf("decode proof: %w", err)
			}

			engine, st, err := openRelay(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := engine.VerifyTx(height, index, txid, raw, proof, confirmations, insecure); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			fmt.Println("Transaction verified")
			return nil
		},
	}

	cmd.Flags().Uint32Var(&height, "height", 0, "block height of the transaction")
	cmd.Flags().Uint64Var(&index, "index", 0, "transaction index within the block")
	cmd.Flags().StringVar(&txidHex, "txid", "", "transaction hash (internal byte order, hex)")
	cmd.Flags().StringVar(&headerHex, "header", "", "80-byte block header, hex encoded")
	cmd.Flags().StringVar(&proofHex, "proof", "", "merkle proof: concatenated 32-byte sibling hashes, hex")
	cmd.Flags().Uint64Var(&confirmations, "min-confirmations", 0, "required confirmation depth (0 for default)")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip the confirmation depth check")
	cmd.MarkFlagRequired("height")
	cmd.MarkFlagRequired("txid")
	cmd.MarkFlagRequired("header")
	return cmd
}
