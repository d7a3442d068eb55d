// Command sketchcheck verifies policy sketches against planning instances
// with a temporal-logic model checker.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rfielding/sketchcheck/config"
	"github.com/rfielding/sketchcheck/features"
	"github.com/rfielding/sketchcheck/laws"
	"github.com/rfielding/sketchcheck/nusmv"
	"github.com/rfielding/sketchcheck/oracle"
	"github.com/rfielding/sketchcheck/sketch"
	"github.com/rfielding/sketchcheck/store"
	"github.com/rfielding/sketchcheck/verify"
)

// errSketchFailed makes the process exit non-zero after a failing verdict
// has already been printed.
var errSketchFailed = errors.New("sketch failed verification")

type app struct {
	// Global flags
	cfgPath string
	dbPath  string
	verbose bool
	noStore bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "sketchcheck",
		Short: "Verify policy sketches with a model checker",
		Long: `sketchcheck grounds a policy sketch (feature-level rules) on a planning
instance and asks a model checker whether following the rules always keeps
the goal reachable and eventually reaches it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "sketchcheck.yaml", "Config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Verdict database (or set SKETCHCHECK_DB)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&a.noStore, "no-store", false, "Do not record verdicts")

	root.AddCommand(
		a.verifyCmd(),
		a.batchCmd(),
		a.expandCmd(),
		a.encodeCmd(),
		a.graphCmd(),
		a.historyCmd(),
		a.lawsCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Store.Path = a.dbPath
	}
	if a.noStore {
		cfg.Store.Enabled = false
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	zcfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	a.logger, err = zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// newOracle builds the oracle named by kind, or the configured one.
func (a *app) newOracle(kind string) (oracle.Oracle, string, error) {
	if kind == "" {
		kind = a.cfg.Oracle.Kind
	}
	switch kind {
	case config.OracleKripke:
		return oracle.NewLocal(oracle.WithLogger(a.logger)), kind, nil
	case config.OracleNuSMV:
		return nusmv.New(
			nusmv.WithPath(a.cfg.Oracle.NuSMVPath),
			nusmv.WithArgs(a.cfg.Oracle.Args...),
			nusmv.WithWorkDir(a.cfg.Oracle.WorkDir),
			nusmv.WithKeepFiles(a.cfg.Oracle.KeepFiles),
			nusmv.WithLogger(a.logger),
		), kind, nil
	}
	return nil, "", fmt.Errorf("invalid oracle: %q (valid: %v)", kind, config.ValidOracles)
}

// resolveLaws parses a comma separated list, falling back to the config.
// When neither names a law, every default law o can decide is used.
func (a *app) resolveLaws(o oracle.Oracle, list string) ([]laws.Law, error) {
	if list != "" {
		return laws.Parse(list)
	}
	if len(a.cfg.Laws) > 0 {
		return a.cfg.GetLaws()
	}
	var out []laws.Law
	for _, l := range laws.Default() {
		if !oracle.Supports(o, l.Logic()) {
			a.logger.Debug("Skipping law the oracle cannot decide",
				zap.String("law", l.Name), zap.Stringer("logic", l.Logic()))
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (a *app) newVerifier(oracleKind, lawList string) (*verify.Verifier, string, error) {
	o, kind, err := a.newOracle(oracleKind)
	if err != nil {
		return nil, "", err
	}
	ls, err := a.resolveLaws(o, lawList)
	if err != nil {
		return nil, "", err
	}
	v := verify.New(o,
		verify.WithLaws(ls...),
		verify.WithLogger(a.logger),
		verify.WithTimeout(a.cfg.GetOracleTimeout()))
	return v, kind, nil
}

// openStore returns nil when the store is disabled.
func (a *app) openStore() (*store.Store, error) {
	if !a.cfg.Store.Enabled {
		return nil, nil
	}
	return store.Open(a.cfg.Store.Path)
}

// loadInstance reads ref as a file, falling back to an instance cached in
// the store under that name.
func (a *app) loadInstance(ctx context.Context, st *store.Store, ref string) (*features.Instance, error) {
	inst, err := features.LoadFile(ref)
	if err == nil || st == nil || !errors.Is(err, fs.ErrNotExist) {
		return inst, err
	}
	a.logger.Debug("Instance file not found, trying store", zap.String("name", ref))
	return st.GetInstance(ctx, ref)
}

// loadSketch reads ref as a file, falling back to the store.
func (a *app) loadSketch(ctx context.Context, st *store.Store, ref string) (sketch.Sketch, string, error) {
	s, name, err := sketch.LoadFile(ref)
	if err == nil || st == nil || !errors.Is(err, fs.ErrNotExist) {
		return s, name, err
	}
	a.logger.Debug("Sketch file not found, trying store", zap.String("name", ref))
	s, err = st.GetSketch(ctx, ref)
	return s, ref, err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errSketchFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
