package config_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/dbirdge/btcrelay/internal/config"
	sdk "github.com/dbirdge/btcrelay/internal/infrastructure/blockchain/solana"
)

func TestFromViper_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := config.FromViper()

	require.Equal(t, config.DefaultNetwork, cfg.Network)
	require.Equal(t, "http://127.0.0.1:8899", cfg.RPCURL)
	require.Equal(t, sdk.DefaultProgramID, cfg.ProgramID)
	require.Equal(t, config.DefaultFeedTopic, cfg.FeedTopic)
	require.Equal(t, config.DefaultEventsTopic, cfg.EventsTopic)
	require.Equal(t, config.DefaultGroupID, cfg.GroupID)
	require.Empty(t, cfg.Brokers)
	require.Zero(t, cfg.Confirmations)
}

func TestFromViper_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("network", string(sdk.NetworkDevnet))
	viper.Set("rpc-url", "http://rpc.example:8899")
	viper.Set("program-id", "SomeProgram1111111111111111111111111111111")
	viper.Set("payer-key", "secret")
	viper.Set("local-only", true)
	viper.Set("brokers", []string{"kafka-1:9092", "kafka-2:9092"})
	viper.Set("feed-topic", "headers.custom")
	viper.Set("store-path", "/var/lib/btcrelay/relay.db")
	viper.Set("confirmations", 12)

	cfg := config.FromViper()

	require.Equal(t, string(sdk.NetworkDevnet), cfg.Network)
	require.Equal(t, "http://rpc.example:8899", cfg.RPCURL)
	require.Equal(t, "SomeProgram1111111111111111111111111111111", cfg.ProgramID)
	require.Equal(t, "secret", cfg.PayerKey)
	require.True(t, cfg.LocalOnly)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
	require.Equal(t, "headers.custom", cfg.FeedTopic)
	require.Equal(t, config.DefaultEventsTopic, cfg.EventsTopic, "unset topics keep defaults")
	require.Equal(t, "/var/lib/btcrelay/relay.db", cfg.StorePath)
	require.Equal(t, uint32(12), cfg.Confirmations)
}

func TestValidate(t *testing.T) {
	valid := config.Config{
		RPCURL:  "http://127.0.0.1:8899",
		Brokers: []string{"localhost:9092"},
	}
	require.NoError(t, valid.Validate())

	noRPC := valid
	noRPC.RPCURL = ""
	require.Error(t, noRPC.Validate())

	noRPC.LocalOnly = true
	require.NoError(t, noRPC.Validate(), "local-only mode does not need an rpc url")

	noBrokers := valid
	noBrokers.Brokers = nil
	require.Error(t, noBrokers.Validate())
}
