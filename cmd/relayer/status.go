package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbirdge/btcrelay/internal/config"
)

// newStatusCmd returns a Cobra command that prints the relay's chain
// view.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the relay's best block and difficulty",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg := config.FromViper()

			engine, st, err := openRelay(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			best, height, err := engine.BestBlock()
			if err != nil {
				return err
			}
			difficulty, err := engine.Difficulty()
			if err != nil {
				return err
			}

			fmt.Println("Best block: ", hex.EncodeToString(best[:]))
			fmt.Println("Best height:", height)
			fmt.Println("Difficulty: ", difficulty.String())
			return nil
		},
	}
}
