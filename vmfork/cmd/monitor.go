package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/sarchlab/vmfork/monitoring"
	"github.com/sarchlab/vmfork/scenario"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run a fork workload behind the monitoring server.",
	Long: "`monitor` runs the same workload as `fork` while serving the " +
		"state of the forker over HTTP, and keeps serving until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := scenarioOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		port, _ := cmd.Flags().GetInt("port")
		open, _ := cmd.Flags().GetBool("open")

		forker, flush := opts.buildForker()
		defer flush()

		monitor := monitoring.NewMonitor().WithPortNumber(port)
		monitor.RegisterForker(forker)
		actualPort := monitor.StartServer()

		if open {
			url := fmt.Sprintf(
				"http://localhost:%d/api/forker/%s/stats",
				actualPort, forker.Name())

			err = browser.OpenURL(url)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
			}
		}

		total := uint64(opts.config.Pages * opts.config.Sharers)
		bar := monitor.CreateProgressBar("Writes", total)

		runner := &scenario.Runner{
			Forker:        forker,
			Do:            monitor.Do,
			OnPageWriting: func() { bar.IncrementInProgress(1) },
			OnPageWritten: func() { bar.MoveInProgressToFinished(1) },
		}

		report, err := runner.Run(opts.config)
		monitor.CompleteProgressBar(bar)

		if err != nil {
			return err
		}

		err = report.Print(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, "Press Ctrl+C to stop the monitoring server.")

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		<-interrupt

		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	addScenarioFlags(monitorCmd)
	monitorCmd.Flags().Int("port", 0,
		"Port of the monitoring server, random if 0")
	monitorCmd.Flags().Bool("open", false,
		"Open the statistics page in a browser")
}
