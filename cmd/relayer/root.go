package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dbirdge/btcrelay/internal/config"
	"github.com/dbirdge/btcrelay/internal/relay"
	"github.com/dbirdge/btcrelay/internal/store"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relayer",
	Short: "A Bitcoin header relay for the btc_relay Solana program",
	Long: `relayer maintains a validated view of the Bitcoin header chain and
mirrors it to the btc_relay program on Solana. Headers arrive on a Kafka
topic, are checked for proof of work, difficulty and chain linkage, and
accepted ones are submitted on chain.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var (
	cfgFile string
	verbose bool
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.btcrelay.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("network", config.DefaultNetwork, "solana cluster (mainnet, devnet, testnet, localnet)")
	rootCmd.PersistentFlags().String("rpc-url", "", "solana RPC URL (overrides the network default)")
	rootCmd.PersistentFlags().String("program-id", "", "btc_relay program id")
	rootCmd.PersistentFlags().String("payer-key", "", "base58 private key of the fee payer")
	rootCmd.PersistentFlags().Bool("local-only", false, "maintain the local relay without on-chain submission")
	rootCmd.PersistentFlags().StringSlice("brokers", []string{"localhost:9092"}, "kafka broker addresses")
	rootCmd.PersistentFlags().String("store-path", "", "relay database path (empty for in-memory)")
	rootCmd.PersistentFlags().Uint32("confirmations", 0, "confirmation depth for reorgs and verification")

	viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newStatusCmd())
}

// bindFlags exposes a command's local flags through viper so config
// file and environment values can supply them.
func bindFlags(cmd *cobra.Command) {
	viper.BindPFlags(cmd.Flags())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".btcrelay")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openRelay opens the configured store and the relay engine on top of
// it. The caller owns the returned store and must close it.
func openRelay(cfg config.Config, logger *slog.Logger) (*relay.Relay, relay.Store, error) {
	var (
		st  relay.Store
		err error
	)
	if cfg.StorePath == "" {
		st = store.NewMemory()
	} else {
		st, err = store.OpenSQLite(cfg.StorePath, logger)
		if err != nil {
			return nil, nil, err
		}
	}
	engine, err := relay.Open(st, relay.Config{
		Confirmations: cfg.Confirmations,
		Logger:        logger,
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return engine, st, nil
}
