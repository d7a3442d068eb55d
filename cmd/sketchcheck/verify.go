package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/sketch"
	"github.com/rfielding/sketchcheck/store"
	"github.com/rfielding/sketchcheck/verify"
)

func (a *app) verifyCmd() *cobra.Command {
	var (
		instRef, sketchRef string
		oracleKind, lawList string
		format              string
		save                bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a sketch on one instance",
		Example: `  sketchcheck verify -i examples/instances/countdown.yaml -s examples/sketches/countdown.yaml
  sketchcheck verify -i countdown -s countdown --oracle nusmv --laws progress,safety,liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			inst, err := a.loadInstance(ctx, st, instRef)
			if err != nil {
				return err
			}
			sk, name, err := a.loadSketch(ctx, st, sketchRef)
			if err != nil {
				return err
			}
			v, kind, err := a.newVerifier(oracleKind, lawList)
			if err != nil {
				return err
			}

			r, err := v.Verify(ctx, sk, inst)
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), r, format); err != nil {
				return err
			}
			if st != nil {
				a.record(cmd, st, name, kind, r)
				if save {
					a.save(cmd, st, inst, name, sk)
				}
			}
			if !r.Passed {
				return errSketchFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&instRef, "instance", "i", "", "Instance file or stored instance name")
	cmd.Flags().StringVarP(&sketchRef, "sketch", "s", "", "Sketch file or stored sketch name")
	cmd.Flags().StringVar(&oracleKind, "oracle", "", "Oracle: kripke or nusmv (default from config)")
	cmd.Flags().StringVar(&lawList, "laws", "", "Comma separated laws (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, markdown or json")
	cmd.Flags().BoolVar(&save, "save", false, "Cache the instance and sketch in the store")
	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("sketch")
	return cmd
}

// record appends the verdict to the history. Failures are logged only.
func (a *app) record(cmd *cobra.Command, st *store.Store, sketchName, oracleKind string, r *verify.Report) {
	v, err := st.RecordVerdict(cmd.Context(), store.NewVerdict(sketchName, oracleKind, r))
	if err != nil {
		a.logger.Warn("Failed to record verdict", zap.Error(err))
		return
	}
	a.logger.Debug("Recorded verdict", zap.String("id", v.ID))
}

func (a *app) save(cmd *cobra.Command, st *store.Store, inst *features.Instance, sketchName string, sk sketch.Sketch) {
	if d, err := st.PutInstance(cmd.Context(), inst); err != nil {
		a.logger.Warn("Failed to cache instance", zap.Error(err))
	} else {
		a.logger.Info("Cached instance", zap.String("name", inst.Name()), zap.String("digest", d))
	}
	if d, err := st.PutSketch(cmd.Context(), sketchName, sk); err != nil {
		a.logger.Warn("Failed to cache sketch", zap.Error(err))
	} else {
		a.logger.Info("Cached sketch", zap.String("name", sketchName), zap.String("digest", d))
	}
}

func writeReport(w io.Writer, r *verify.Report, format string) error {
	switch format {
	case "text":
		fmt.Fprintln(w, r.String())
		for _, l := range r.Laws {
			status := "ok"
			if !l.Passed {
				status = fmt.Sprintf("FAILED (got %t, want %t)", l.Got, l.Expect)
			}
			fmt.Fprintf(w, "  %-16s %-4s %s\n", l.Law, l.Logic, status)
		}
	case "markdown":
		_, err := io.WriteString(w, r.Markdown())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return fmt.Errorf("unknown format %q (valid: text, markdown, json)", format)
	}
	return nil
}
