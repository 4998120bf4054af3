package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "registry",
		Short:        "Membership registry client",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "JSON-RPC URL")
	root.PersistentFlags().String("contract", "", "registry contract address")
	root.PersistentFlags().String("abi-file", "", "optional registry ABI JSON (defaults to the embedded ABI)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Print the merged Registered/Unregistered timeline as JSON lines",
		RunE:  runEvents,
	}
	eventsCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	eventsCmd.Flags().String("to", "latest", "end block (inclusive) or latest")
	eventsCmd.Flags().Uint64("chunk-size", 5000, "blocks per query for closed ranges")
	root.AddCommand(eventsCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll for new membership events from a persisted cursor",
		RunE:  runWatch,
	}
	watchCmd.Flags().Uint64("from", 0, "start block when no cursor is stored")
	watchCmd.Flags().Duration("poll-interval", 15*time.Second, "delay between polls")
	watchCmd.Flags().Bool("once", false, "poll once and exit")
	watchCmd.Flags().String("cursor", "./data/cursor.json", "cursor file path")
	watchCmd.Flags().String("cursor-name", "registry", "cursor row name when using postgres")
	watchCmd.Flags().String("pg-dsn", "", "Postgres DSN (stores the cursor instead of the file)")
	watchCmd.Flags().Int("max-retries", 5, "maximum retry attempts for unavailable ledger")
	watchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	root.AddCommand(watchCmd)

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Read the current record of an address",
		RunE:  runRecord,
	}
	recordCmd.Flags().String("address", "", "registered address")
	root.AddCommand(recordCmd)

	workCmd := &cobra.Command{
		Use:   "work",
		Short: "Read the address registered under an id",
		RunE:  runWork,
	}
	workCmd.Flags().String("id", "", "registration id (decimal or 0x hex)")
	root.AddCommand(workCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Read numRecords and maxId",
		RunE:  runStats,
	}
	root.AddCommand(statsCmd)

	for _, method := range []string{"register", "unregister"} {
		txCmd := &cobra.Command{
			Use:   method,
			Short: "Submit " + method + "(target) from the sender account",
			RunE:  runTx(method),
		}
		txCmd.Flags().String("sender", "", "sender account unlocked on the node")
		txCmd.Flags().String("target", "", "address to "+method)
		txCmd.Flags().Uint64("gas", 0, "gas limit, 0 lets the node estimate")
		txCmd.Flags().String("value", "", "wei to send (decimal or 0x hex)")
		root.AddCommand(txCmd)
	}

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
