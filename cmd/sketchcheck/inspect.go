package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/kripke"
	"github.com/rfielding/sketchcheck/laws"
	"github.com/rfielding/sketchcheck/nusmv"
	"github.com/rfielding/sketchcheck/oracle"
	"github.com/rfielding/sketchcheck/sketch"
	"github.com/rfielding/sketchcheck/temporal"
	"github.com/rfielding/sketchcheck/tlaplus"
)

// inputs loads the instance and sketch every inspection command works on.
func (a *app) inputs(cmd *cobra.Command, instRef, sketchRef string) (*features.Instance, sketch.Sketch, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, sketch.Sketch{}, err
	}
	if st != nil {
		defer st.Close()
	}
	inst, err := a.loadInstance(cmd.Context(), st, instRef)
	if err != nil {
		return nil, sketch.Sketch{}, err
	}
	sk, _, err := a.loadSketch(cmd.Context(), st, sketchRef)
	if err != nil {
		return nil, sketch.Sketch{}, err
	}
	return inst, sk, nil
}

func (a *app) expandCmd() *cobra.Command {
	var instRef, sketchRef string
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Print the grounded rules of a sketch on an instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, sk, err := a.inputs(cmd, instRef, sketchRef)
			if err != nil {
				return err
			}
			grounded, err := sk.Expand(inst.Bounds())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, sk.Render(inst.DisplayNames()))
			fmt.Fprintf(out, "%d rules, %d grounded:\n", sk.Len(), len(grounded))
			fmt.Fprint(out, sketch.FormatGroundRules(grounded))
			return nil
		},
	}
	cmd.Flags().StringVarP(&instRef, "instance", "i", "", "Instance file or stored instance name")
	cmd.Flags().StringVarP(&sketchRef, "sketch", "s", "", "Sketch file or stored sketch name")
	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("sketch")
	return cmd
}

func (a *app) encodeCmd() *cobra.Command {
	var instRef, sketchRef, lawList, format string
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print the checker model and law queries for a sketch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, sk, err := a.inputs(cmd, instRef, sketchRef)
			if err != nil {
				return err
			}
			grounded, err := sk.Expand(inst.Bounds())
			if err != nil {
				return err
			}
			// No oracle runs here, so every default law is encoded.
			ls, err := a.resolveLaws(nil, lawList)
			if err != nil {
				return err
			}
			specs := make([]temporal.Spec, 0, len(ls))
			for _, l := range ls {
				specs = append(specs, l.Instantiate(len(grounded)))
			}
			m := oracle.NewModel(inst, grounded)
			switch format {
			case "smv":
				return nusmv.Encode(cmd.OutOrStdout(), m, specs...)
			case "tla":
				return tlaplus.Encode(cmd.OutOrStdout(), m, specs...)
			}
			return fmt.Errorf("unknown format %q (valid: smv, tla)", format)
		},
	}
	cmd.Flags().StringVarP(&instRef, "instance", "i", "", "Instance file or stored instance name")
	cmd.Flags().StringVarP(&sketchRef, "sketch", "s", "", "Sketch file or stored sketch name")
	cmd.Flags().StringVar(&lawList, "laws", "", "Comma separated laws (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "smv", "Output language: smv or tla")
	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("sketch")
	return cmd
}

func (a *app) graphCmd() *cobra.Command {
	var instRef, format string
	var noLabels bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Draw the state graph of an instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}
			inst, err := a.loadInstance(cmd.Context(), st, instRef)
			if err != nil {
				return err
			}

			opts := []kripke.DiagramOption{
				kripke.WithInitial(inst.Initial()),
				kripke.WithHighlight(inst.Goals()...),
				kripke.WithStateLabel(inst.StateSummary),
			}
			if noLabels {
				opts = append(opts, kripke.WithoutEdgeLabels())
			}
			switch format {
			case "dot":
				return kripke.WriteDOT(cmd.OutOrStdout(), inst.Graph(), opts...)
			case "mermaid":
				return kripke.WriteMermaidStateDiagram(cmd.OutOrStdout(), inst.Graph(), opts...)
			case "table":
				opts = append(opts, kripke.WithEdgeNote(inst.Changes))
				return kripke.WriteTransitionTable(cmd.OutOrStdout(), inst.Graph(), opts...)
			}
			return fmt.Errorf("unknown format %q (valid: dot, mermaid, table)", format)
		},
	}
	cmd.Flags().StringVarP(&instRef, "instance", "i", "", "Instance file or stored instance name")
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "Diagram format: dot, mermaid or table")
	cmd.Flags().BoolVar(&noLabels, "no-edge-labels", false, "Omit transition labels")
	_ = cmd.MarkFlagRequired("instance")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded verdicts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("verdict store is disabled")
			}
			defer st.Close()

			verdicts, err := st.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(verdicts) == 0 {
				fmt.Fprintln(out, "no verdicts recorded")
			}
			for _, v := range verdicts {
				fmt.Fprintln(out, v)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of verdicts to show (0 for all)")
	return cmd
}

func (a *app) lawsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "laws [N]",
		Short: "List the known laws instantiated for N grounded rules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 1
			if len(args) == 1 {
				var err error
				if n, err = strconv.Atoi(args[0]); err != nil || n < 0 {
					return fmt.Errorf("invalid rule count %q", args[0])
				}
			}
			out := cmd.OutOrStdout()
			for _, l := range laws.All() {
				fmt.Fprintf(out, "%s\n  %s\n  %s\n", l, l.Description, l.Instantiate(n).Formula)
			}
			return nil
		},
	}
}
