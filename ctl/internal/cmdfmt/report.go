package cmdfmt

import (
	"strings"
	"time"

	"github.com/mitchellh/go-wordwrap"
	"github.com/spectrumscale/scale-go/ctl/internal/util"
	"github.com/spectrumscale/scale-go/ctl/pkg/config"
	"github.com/spectrumscale/scale-go/ctl/pkg/ctl/node"
	"github.com/spf13/viper"
)

const reasonWidth = 60

// Envelope wraps the result of a command that may change the cluster.
type Envelope struct {
	Changed bool   `json:"changed"`
	RC      int    `json:"rc"`
	Msg     string `json:"msg"`
	Result  any    `json:"result"`
}

// BatchError returns the error a command should exit with after a batch ended. Batches that changed
// some nodes but failed others exit with the partial success code.
func BatchError(report node.BatchReport, err error) error {
	if err != nil && report.PartialSuccess() {
		return util.NewCtlError(err, util.PartialSuccess)
	}
	return err
}

// PrintBatchReport prints the report of a batch and returns the error the command should exit with.
func PrintBatchReport(report node.BatchReport, err error) error {
	err = BatchError(report, err)

	if Structured() {
		env := Envelope{
			Changed: report.Changed,
			RC:      int(util.ExitCode(err)),
			Msg:     "success",
			Result:  report,
		}
		if err != nil {
			env.Msg = err.Error()
		}
		if printErr := PrintResult(env); printErr != nil {
			return printErr
		}
		return err
	}

	columns := []string{"node", "outcome", "phase", "detached", "disks", "reason"}
	tbl := NewPrintomatic(columns, columns)
	for _, n := range report.Nodes {
		tbl.AddItem(n.Node, n.Outcome, n.Phase, strings.Join(n.Detached, ","), strings.Join(n.Disks, ","), wordwrap.WrapString(n.Reason, reasonWidth))
	}
	tbl.PrintRemaining()

	Printf("Batch %s (%s) ended in phase %s after %s: %d succeeded | %d failed | %d skipped | changed: %t\n",
		report.ID, report.Operation, report.Phase, report.Finished.Sub(report.Started).Round(time.Millisecond),
		len(report.Succeeded()), len(report.Failed()), len(report.Skipped()), report.Changed)
	if report.Reason != "" {
		Printf("Reason: %s\n", wordwrap.WrapString(report.Reason, reasonWidth*2))
	}
	if viper.GetBool(config.DebugKey) {
		for _, m := range report.Messages {
			Printf("  %s\n", m)
		}
	}
	return err
}
