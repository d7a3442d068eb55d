package nusmv

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rfielding/sketchcheck/oracle"
	"github.com/rfielding/sketchcheck/temporal"
)

// DefaultPath is the executable looked up on PATH when none is configured.
const DefaultPath = "NuSMV"

var (
	ErrNoVerdict = errors.New("nusmv: no verdict in checker output")
	ErrFailed    = errors.New("nusmv: checker failed")
)

var verdictLine = regexp.MustCompile(`(?m)^-- specification (.*) is (true|false)\s*$`)

// ParseVerdicts extracts the verdicts NuSMV prints, in output order.
func ParseVerdicts(r io.Reader) ([]bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out []bool
	for _, m := range verdictLine.FindAllSubmatch(data, -1) {
		out = append(out, string(m[2]) == "true")
	}
	return out, nil
}

// Oracle checks each query by writing the model and the query to a file in
// a per-session directory and running NuSMV on it.
type Oracle struct {
	path      string
	args      []string
	workDir   string
	keepFiles bool
	logger    *zap.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithPath sets the NuSMV executable.
func WithPath(path string) Option {
	return func(o *Oracle) {
		if path != "" {
			o.path = path
		}
	}
}

// WithArgs sets extra arguments passed before the model file.
func WithArgs(args ...string) Option {
	return func(o *Oracle) {
		o.args = args
	}
}

// WithWorkDir sets the parent of the per-session directories.
func WithWorkDir(dir string) Option {
	return func(o *Oracle) {
		o.workDir = dir
	}
}

// WithKeepFiles leaves session directories in place after Close.
func WithKeepFiles(keep bool) Option {
	return func(o *Oracle) {
		o.keepFiles = keep
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Oracle) {
		o.logger = logger
	}
}

// New creates a NuSMV oracle.
func New(opts ...Option) *Oracle {
	o := &Oracle{path: DefaultPath, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Path returns the configured executable.
func (o *Oracle) Path() string { return o.path }

// Supports reports true for CTL and LTL.
func (o *Oracle) Supports(l temporal.Logic) bool {
	return l != temporal.Mixed
}

// Open encodes the model once and creates the session directory.
func (o *Oracle) Open(ctx context.Context, m *oracle.Model) (oracle.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var model bytes.Buffer
	if err := Encode(&model, m); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(o.workDir, "sketchcheck-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	o.logger.Debug("Opened NuSMV session", zap.String("dir", dir), zap.String("model", m.Name))
	return &session{
		oracle: o,
		model:  m,
		text:   model.Bytes(),
		dir:    dir,
		logger: o.logger.With(zap.String("model", m.Name)),
	}, nil
}

type session struct {
	oracle  *Oracle
	model   *oracle.Model
	text    []byte
	dir     string
	logger  *zap.Logger
	queries int
	closed  bool
}

func (s *session) Check(ctx context.Context, spec temporal.Spec) (bool, error) {
	if s.closed {
		return false, oracle.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.queries++
	path := filepath.Join(s.dir, "query-"+strconv.Itoa(s.queries)+".smv")
	if err := s.writeQuery(path, spec); err != nil {
		return false, err
	}

	args := append(append([]string(nil), s.oracle.args...), path)
	cmd := exec.CommandContext(ctx, s.oracle.path, args...)
	cmd.Dir = s.dir
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v: %s", ErrFailed, spec.Name, err, tail(stderr.Bytes(), stdout.Bytes()))
	}

	verdicts, err := ParseVerdicts(&stdout)
	if err != nil {
		return false, err
	}
	if len(verdicts) != 1 {
		return false, fmt.Errorf("%w: %s: got %d verdicts: %s", ErrNoVerdict, spec.Name, len(verdicts), tail(stderr.Bytes(), stdout.Bytes()))
	}
	s.logger.Debug("Checked query",
		zap.String("spec", spec.Name),
		zap.Bool("holds", verdicts[0]),
		zap.Duration("duration", elapsed))
	return verdicts[0], nil
}

func (s *session) writeQuery(path string, spec temporal.Spec) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write query: %w", err)
	}
	w := bufio.NewWriter(f)
	w.Write(s.text)
	var line bytes.Buffer
	if err := writeSpec(&line, s.model, spec); err != nil {
		f.Close()
		return err
	}
	w.Write(line.Bytes())
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write query: %w", err)
	}
	return f.Close()
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.oracle.keepFiles {
		s.logger.Info("Keeping NuSMV session files", zap.String("dir", s.dir))
		return nil
	}
	return os.RemoveAll(s.dir)
}

// tail returns the last part of the checker's output for error messages.
func tail(streams ...[]byte) string {
	const limit = 512
	var out []byte
	for _, b := range streams {
		out = append(out, bytes.TrimSpace(b)...)
		if len(out) > 0 {
			break
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return string(out)
}
