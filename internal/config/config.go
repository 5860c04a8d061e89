package config

import (
	"fmt"

	"github.com/spf13/viper"

	sdk "github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana"
)

// Default configuration constants
const (
	DefaultNetwork = string(sdk.NetworkLocalnet)

	DefaultFeedTopic   = "btc.headers"
	DefaultEventsTopic = "btc.relay.events"
	DefaultGroupID     = "btcrelay"

	DefaultStorePath = "btcrelay.db"
)

// Config holds configuration for the relayer and CLI commands.
type Config struct {
	// Solana side
	Network   string
	RPCURL    string
	ProgramID string
	PayerKey  string // base58 private key of the fee payer
	LocalOnly bool   // skip on-chain submission entirely

	// Header feed
	Brokers     []string
	FeedTopic   string
	EventsTopic string
	GroupID     string

	// Relay engine
	StorePath     string // empty = in-memory
	Confirmations uint32
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.RPCURL == "" && !c.LocalOnly {
		return fmt.Errorf("rpc-url is required")
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	return nil
}

// FromViper returns a configuration assembled from viper with
// defaults applied.
func FromViper() Config {
	network := viper.GetString("network")
	if network == "" {
		network = DefaultNetwork
	}

	rpcURL := viper.GetString("rpc-url")
	if rpcURL == "" {
		rpcURL = sdk.DefaultRPCURL(sdk.Network(network))
	}

	programID := viper.GetString("program-id")
	if programID == "" {
		programID = sdk.DefaultProgramID
	}

	feedTopic := viper.GetString("feed-topic")
	if feedTopic == "" {
		feedTopic = DefaultFeedTopic
	}
	eventsTopic := viper.GetString("events-topic")
	if eventsTopic == "" {
		eventsTopic = DefaultEventsTopic
	}
	groupID := viper.GetString("group-id")
	if groupID == "" {
		groupID = DefaultGroupID
	}

	return Config{
		Network:       network,
		RPCURL:        rpcURL,
		ProgramID:     programID,
		PayerKey:      viper.GetString("payer-key"),
		LocalOnly:     viper.GetBool("local-only"),
		Brokers:       viper.GetStringSlice("brokers"),
		FeedTopic:     feedTopic,
		EventsTopic:   eventsTopic,
		GroupID:       groupID,
		StorePath:     viper.GetString("store-path"),
		Confirmations: viper.GetUint32("confirmations"),
	}
}
