package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/verify"
)

func (a *app) batchCmd() *cobra.Command {
	var (
		sketchRef           string
		oracleKind, lawList string
		format              string
		jobs                int
		metrics             bool
	)
	cmd := &cobra.Command{
		Use:   "batch INSTANCE...",
		Short: "Verify a sketch on many instances concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			sk, name, err := a.loadSketch(ctx, st, sketchRef)
			if err != nil {
				return err
			}
			insts := make([]*features.Instance, 0, len(args))
			for _, ref := range args {
				inst, err := a.loadInstance(ctx, st, ref)
				if err != nil {
					return err
				}
				insts = append(insts, inst)
			}
			v, kind, err := a.newVerifier(oracleKind, lawList)
			if err != nil {
				return err
			}
			if jobs < 1 {
				jobs = a.cfg.Batch.Jobs
			}

			start := time.Now()
			results, err := v.VerifyBatch(ctx, sk, insts, jobs)
			summary := verify.Summarize(results, time.Since(start))
			for _, res := range results {
				if res.Report != nil && st != nil {
					a.record(cmd, st, name, kind, res.Report)
				}
			}

			out := cmd.OutOrStdout()
			switch format {
			case "markdown":
				fmt.Fprint(out, summary.Markdown())
			default:
				for _, res := range results {
					switch {
					case res.Err != nil:
						fmt.Fprintf(out, "ERROR %s: %v\n", res.Instance, res.Err)
					case res.Report.Passed:
						fmt.Fprintf(out, "PASS  %s\n", res.Report)
					default:
						fmt.Fprintf(out, "FAIL  %s\n", res.Report)
					}
				}
				fmt.Fprintln(out, summary)
			}

			if metrics {
				if err := writeMetrics(out, prometheus.DefaultGatherer); err != nil {
					return err
				}
			}
			if err != nil {
				return err
			}
			if summary.Passed != summary.Total {
				return errSketchFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&sketchRef, "sketch", "s", "", "Sketch file or stored sketch name")
	cmd.Flags().StringVar(&oracleKind, "oracle", "", "Oracle: kripke or nusmv (default from config)")
	cmd.Flags().StringVar(&lawList, "laws", "", "Comma separated laws (default from config)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Concurrent verifications (default from config)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Print verification metrics when done")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or markdown")
	_ = cmd.MarkFlagRequired("sketch")
	return cmd
}

// writeMetrics dumps the sketchcheck metrics in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "sketchcheck_") {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
