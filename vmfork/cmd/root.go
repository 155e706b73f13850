// Package cmd provides the command-line interface of vmfork.
package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sarchlab/vmfork/sim"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// envFlags maps flags to the environment variables that provide their
// defaults.
var envFlags = map[string]string{
	"frames": "VMFORK_NUM_FRAMES",
	"record": "VMFORK_RECORD",
	"port":   "VMFORK_MONITOR_PORT",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vmfork",
	Short: "vmfork forks simulated address spaces.",
	Long: `vmfork forks simulated address spaces, either by copying every ` +
		`page or by sharing pages copy-on-write, and reports what each ` +
		`strategy costs. Defaults can be given in a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		err = applyEnv(cmd.Flags())
		if err != nil {
			return err
		}

		parallelIDs, _ := cmd.Flags().GetBool("parallel-ids")
		if parallelIDs {
			sim.UseParallelIDGenerator()
		} else {
			sim.UseSequentialIDGenerator()
		}

		return nil
	},
}

func applyEnv(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		name, ok := envFlags[f.Name]
		if !ok || f.Changed || err != nil {
			return
		}

		value, ok := os.LookupEnv(name)
		if !ok {
			return
		}

		err = flags.Set(f.Name, value)
	})

	return err
}

func init() {
	rootCmd.PersistentFlags().Bool("parallel-ids", false,
		"Name address spaces with globally unique IDs instead of counting "+
			"from 1")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
