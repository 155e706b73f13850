package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/sarchlab/vmfork/datarecording"
	"github.com/sarchlab/vmfork/mem/vm/cow"
	"github.com/sarchlab/vmfork/scenario"
	"github.com/sarchlab/vmfork/sim"
	"github.com/sarchlab/vmfork/tracing"
	"github.com/spf13/cobra"
)

var forkCmd = &cobra.Command{
	Use:   "fork",
	Short: "Fork an address space and write from every sharer.",
	Long: "`fork --mode cow --pages 8 --sharers 4` maps 8 pages, forks the " +
		"address space 3 times, writes every page from every sharer, and " +
		"reports the frames allocated and copied.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := scenarioOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		forker, flush := opts.buildForker()
		defer flush()

		runner := &scenario.Runner{Forker: forker}

		report, err := runner.Run(opts.config)
		if err != nil {
			return err
		}

		err = report.Print(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		if opts.dump {
			return dumpSpaces(cmd, forker)
		}

		return nil
	},
}

type scenarioOptions struct {
	config      scenario.Config
	numFrames   int
	record      string
	trace       bool
	dump        bool
	parallelIDs bool
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "cow", "Fork mode, copy or cow")
	cmd.Flags().Int("pages", 8, "Number of pages of the parent")
	cmd.Flags().Int("sharers", 4, "Number of sharers, the parent included")
	cmd.Flags().Int("frames", 4096, "Number of frames of the physical memory")
	cmd.Flags().String("record", "",
		"Record forks and faults into <name>.sqlite3")
	cmd.Flags().Bool("trace", false, "Print forks and faults to stderr")
	cmd.Flags().Bool("dump", false, "Print the mappings of every sharer")
}

func scenarioOptionsFromFlags(cmd *cobra.Command) (scenarioOptions, error) {
	flags := cmd.Flags()
	opts := scenarioOptions{}

	modeName, _ := flags.GetString("mode")
	mode, err := scenario.ParseMode(modeName)
	if err != nil {
		return opts, err
	}

	opts.config.Mode = mode
	opts.config.Pages, _ = flags.GetInt("pages")
	opts.config.Sharers, _ = flags.GetInt("sharers")
	opts.numFrames, _ = flags.GetInt("frames")
	opts.record, _ = flags.GetString("record")
	opts.trace, _ = flags.GetBool("trace")
	opts.dump, _ = flags.GetBool("dump")
	opts.parallelIDs, _ = flags.GetBool("parallel-ids")

	if opts.numFrames <= 0 {
		return opts, fmt.Errorf("frames must be positive, got %d",
			opts.numFrames)
	}

	return opts, nil
}

// buildForker creates the forker and attaches the requested tracers. The
// returned function flushes the recording, if any.
func (o scenarioOptions) buildForker() (*cow.Forker, func()) {
	builder := cow.MakeBuilder().WithNumFrames(o.numFrames)
	if o.parallelIDs {
		builder = builder.WithIDGenerator(sim.GetIDGenerator())
	}

	forker := builder.Build("Forker")

	if o.trace {
		tracing.Attach(forker,
			tracing.NewLogTracer(log.New(os.Stderr, "", 0)))
	}

	if o.record == "" {
		return forker, func() {}
	}

	tracer := tracing.NewRecordingTracer(datarecording.New(o.record))
	tracing.Attach(forker, tracer)

	return forker, tracer.Flush
}

func dumpSpaces(cmd *cobra.Command, forker *cow.Forker) error {
	w := cmd.OutOrStdout()

	for _, s := range forker.Spaces() {
		fmt.Fprintf(w, "\nspace %s\n", s.ID())

		err := s.Dump(w)
		if err != nil {
			return err
		}
	}

	return nil
}

func init() {
	rootCmd.AddCommand(forkCmd)
	addScenarioFlags(forkCmd)
}
