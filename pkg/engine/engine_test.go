package engine

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/brepfacade/pkg/kernel/trimesh"
)

func newTestEngine(opts ...Option) *Engine {
	return NewEngine(trimesh.New(), opts...)
}

func TestEvaluateEmptyString(t *testing.T) {
	eng := newTestEngine()

	for _, src := range []string{"", "   \n\t  \n  "} {
		m, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if m == nil {
			t.Fatal("expected non-nil model")
		}
		if m.Len() != 0 {
			t.Errorf("expected empty model, got %d objects", m.Len())
		}
	}
}

func TestEvaluateValidExpression(t *testing.T) {
	eng := newTestEngine()

	m, evalErrs, err := eng.Evaluate("(+ 1 2)")
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if m == nil || m.Len() != 0 {
		t.Fatalf("expected empty model, got %v", m)
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	eng := newTestEngine()

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	m, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if m == nil {
		t.Fatal("expected non-nil model")
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := newTestEngine()

	// Unmatched paren is a parse error.
	m, evalErrs, err := eng.Evaluate("(+ 1 2")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil model on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := newTestEngine()

	m, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil model on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	var err error = EvalError{Line: 3, Message: "boom"}
	if got := err.Error(); got != "line 3: boom" {
		t.Errorf("Error() = %q, want %q", got, "line 3: boom")
	}
	err = EvalError{Message: "boom"}
	if got := err.Error(); got != "boom" {
		t.Errorf("Error() = %q, want %q", got, "boom")
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := newTestEngine()

	// Each evaluation starts from a fresh model, so reusing names is fine.
	for i := 0; i < 5; i++ {
		m, evalErrs, err := eng.Evaluate(`(box "b" 1 1 1)`)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if m.Len() != 1 {
			t.Errorf("iteration %d: expected 1 object, got %d", i, m.Len())
		}
	}
}

func TestWaitWithTimeout(t *testing.T) {
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult) // never sends

	start := time.Now()
	_, _, err := waitWithTimeout(ch, 20*time.Millisecond, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout took %s", time.Since(start))
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	_, _, err := waitWithTimeout(ch, EvalTimeout, 1, &mu, &gen)
	if err != ErrSuperseded {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
}

func TestWithTimeoutIgnoresNonPositive(t *testing.T) {
	eng := newTestEngine(WithTimeout(0))
	if eng.timeout != EvalTimeout {
		t.Errorf("timeout = %s, want %s", eng.timeout, EvalTimeout)
	}
	eng = newTestEngine(WithTimeout(time.Second), WithSegments(2), WithTolerances(1e-3, 0.5))
	if eng.timeout != time.Second {
		t.Errorf("timeout = %s, want 1s", eng.timeout)
	}
	if eng.segments != DefaultSegments {
		t.Errorf("segments = %d, want %d", eng.segments, DefaultSegments)
	}
	if eng.planeTol != 1e-3 || eng.gap != 0.5 {
		t.Errorf("tolerances = %g, %g; want 1e-3, 0.5", eng.planeTol, eng.gap)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short line format", "line 7: bad thing", 7, "bad thing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }
