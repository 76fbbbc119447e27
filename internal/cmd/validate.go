package cmd

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cognicore/deid/pkg/deid/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the pipeline configuration",
	Long:  "Loads the configuration, builds every stage and lists the resulting pipeline.",
	RunE:  validate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	path := viper.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	loader := config.Loader{Store: st, Logger: log.Logger}
	d, err := loader.Build(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ %s is valid\n", path)
	fmt.Fprintf(out, "  stages: %s\n", strings.Join(d.Stages().Names(true), ", "))
	if cfg.FailSafe {
		fmt.Fprintln(out, "  fail-safe: enabled")
	}
	return nil
}
