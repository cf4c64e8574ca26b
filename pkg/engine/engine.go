// Package engine evaluates modeling scripts. Scripts are zygomys Lisp run
// in a sandbox; builtins create named objects in a model and drive the
// shape facade on them.
package engine

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chazu/brepfacade/pkg/facade"
	"github.com/chazu/brepfacade/pkg/kernel"
	"github.com/chazu/brepfacade/pkg/model"
	zygo "github.com/glycerine/zygomys/zygo"
)

// DefaultSegments is the cylinder tessellation used when a script does not
// pass :segments.
const DefaultSegments = 32

// EvalError is a non-fatal error in user code: a parse error, a runtime
// error or a validation failure of the resulting model.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning is an advisory finding about an object in the model.
type EvalWarning struct {
	Object  string
	Message string
}

// EvalResult bundles the full output of Run.
type EvalResult struct {
	Model    *model.Model
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// evaluation gets a fresh sandbox and a fresh model.
type Engine struct {
	k        kernel.Kernel
	timeout  time.Duration
	planeTol float64
	gap      float64
	segments int
	logger   *log.Logger
	obs      facade.Observer

	mu         sync.Mutex
	generation uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each evaluation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithTolerances sets the defaults for find-plane and bounding-box.
func WithTolerances(plane, gap float64) Option {
	return func(e *Engine) {
		e.planeTol = plane
		e.gap = gap
	}
}

// WithSegments sets the default cylinder segment count.
func WithSegments(n int) Option {
	return func(e *Engine) {
		if n >= 3 {
			e.segments = n
		}
	}
}

// WithLogger sets the logger handed to every facade.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers an observer for facade operations.
func WithObserver(o facade.Observer) Option {
	return func(e *Engine) { e.obs = o }
}

// NewEngine creates an Engine building shapes with k.
func NewEngine(k kernel.Kernel, opts ...Option) *Engine {
	e := &Engine{
		k:        k,
		timeout:  EvalTimeout,
		planeTol: facade.DefaultPlaneTolerance,
		gap:      facade.DefaultBoundingBoxGap,
		segments: DefaultSegments,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Kernel returns the kernel the engine builds with.
func (e *Engine) Kernel() kernel.Kernel { return e.k }

// Facade returns a facade for o configured like the engine's own.
func (e *Engine) Facade(o facade.Owner) *facade.Facade {
	return facade.New(o, e.k, facade.WithLogger(e.logger), facade.WithObserver(e.obs))
}

// Evaluate runs source and returns the model it built.
//
// Return semantics:
//   - On success: model, nil, nil
//   - On parse or runtime failure in user code: nil, eval errors, nil
//   - On fatal failure (timeout, panic, superseded): nil, nil, error
func (e *Engine) Evaluate(source string) (*model.Model, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		m, evalErrs, err := e.evaluate(source)
		ch <- evalResult{model: m, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, e.timeout, gen, &e.mu, &e.generation)
}

// Run evaluates source and validates the resulting model. Validation
// errors are reported as eval errors, warnings as warnings.
func (e *Engine) Run(source string) (EvalResult, error) {
	m, evalErrs, err := e.Evaluate(source)
	if err != nil {
		return EvalResult{}, err
	}
	res := EvalResult{Model: m, Errors: evalErrs}
	if m == nil {
		return res, nil
	}
	for _, v := range model.Validate(m, e.k) {
		if v.Severity == model.SeverityError {
			res.Errors = append(res.Errors, EvalError{Message: v.Error()})
			continue
		}
		res.Warnings = append(res.Warnings, EvalWarning{Object: v.Object, Message: v.Message})
	}
	return res, nil
}

func (e *Engine) evaluate(source string) (*model.Model, []EvalError, error) {
	m := model.New()
	if strings.TrimSpace(source) == "" {
		return m, nil, nil
	}

	// The sandbox keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, &session{e: e, m: m})

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return m, nil, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches "line N: ...".
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, extracting
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
