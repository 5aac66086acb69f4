// Command load-generator seeds the shop schema and then writes purchases to Postgres and publishes
// pageviews to Kafka or RabbitMQ at fixed rates until it receives SIGINT, SIGTERM or SIGHUP.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AntonStoeckl/shop-load-generator/shell/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:          "load-generator",
		Short:        "Generates purchases and pageviews against a shop schema",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			return run(cmd.Context(), cfg)
		},
	}

	if err := config.BindFlags(v, cmd.PersistentFlags()); err != nil {
		panic(err)
	}

	cmd.AddCommand(newSeedCmd(v), newRegisterConnectorCmd(v))

	return cmd
}

func newSeedCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Creates the schema and inserts users and items, then exits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			return seed(cmd.Context(), cfg)
		},
	}
}

func newRegisterConnectorCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "register-connector",
		Short: "Registers the Debezium Postgres connector with Kafka Connect, then exits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			return registerConnector(cmd.Context(), cfg)
		},
	}
}
