package scenario

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/vmfork/mem/vm"
)

// Print writes the report as a table.
func (r Report) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	rows := [][2]string{
		{"mode", r.Mode.String()},
		{"pages", fmt.Sprint(r.Pages)},
		{"sharers", strings.Join(r.Spaces, " ")},
		{"frames after fork", fmt.Sprint(r.FramesAfterFork)},
		{"frames after write", fmt.Sprint(r.FramesAfterWrite)},
		{"frames copied by fork", fmt.Sprint(r.Stats.EagerFramesCopied)},
		{"frames copied by fault", fmt.Sprint(r.Stats.FaultsCopied)},
		{"frames retained by fault", fmt.Sprint(r.Stats.FaultsRetained)},
	}

	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}

	ppns := make([]vm.PPN, 0, len(r.SharedAfterFork))
	for ppn := range r.SharedAfterFork {
		ppns = append(ppns, ppn)
	}

	sort.Slice(ppns, func(i, j int) bool { return ppns[i] < ppns[j] })

	for _, ppn := range ppns {
		fmt.Fprintf(tw, "shared count of 0x%x\t%d\n",
			uint64(ppn), r.SharedAfterFork[ppn])
	}

	return tw.Flush()
}
