package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dbirdge/btcrelay/internal/config"
	domainents "github.com/dbirdge/btcrelay/internal/domain/entities"
	sdk "github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana"
	"github.com/dbirdge/btcrelay/internal/infrastructure/messaging/kafka/repositories/repository"
	"github.com/dbirdge/btcrelay/internal/relayer"
)

// newStartCmd returns a Cobra command that runs the relayer service.
func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the relayer",
		Long: `Consumes Bitcoin block headers from the feed topic, validates them
against the local relay and mirrors accepted headers to the btc_relay
program. Relay events are published to the events topic.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg := config.FromViper()
			if err := cfg.Validate(); err != nil {
				return err
			}

			engine, st, err := openRelay(cfg, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if !engine.Initialized() {
				return fmt.Errorf("relay is not initialized, run 'relayer init' first")
			}

			feedParams := repository.KafkaMessageQueueParams{
				Brokers: cfg.Brokers,
				Topic:   cfg.FeedTopic,
				GroupID: cfg.GroupID,
			}
			if err := repository.ValidateKafkaParams(feedParams); err != nil {
				return err
			}
			feed := repository.InitializeKafkaMessageQueue[domainents.HeaderAnnouncement](feedParams)
			defer feed.Close()

			events := repository.InitializeKafkaMessageQueue[domainents.RelayEvent](repository.KafkaMessageQueueParams{
				Brokers: cfg.Brokers,
				Topic:   cfg.EventsTopic,
			})
			defer events.Close()

			var chain relayer.ChainSubmitter
			if !cfg.LocalOnly {
				if cfg.PayerKey == "" {
					return fmt.Errorf("payer-key is required unless --local-only is set")
				}
				chain = sdk.NewClient(cfg.RPCURL, cfg.ProgramID)
			}

			service, err := relayer.New(relayer.Config{
				Relay:           engine,
				Feed:            feed,
				Events:          events,
				Chain:           chain,
				PayerPrivateKey: cfg.PayerKey,
				Logger:          logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return service.Run(ctx)
		},
	}

	cmd.Flags().String("feed-topic", config.DefaultFeedTopic, "kafka topic carrying header announcements")
	cmd.Flags().String("events-topic", config.DefaultEventsTopic, "kafka topic for relay events")
	cmd.Flags().String("group-id", config.DefaultGroupID, "kafka consumer group id")
	bindFlags(cmd)
	return cmd
}
