// Package engine evaluates lattice scripts. A script is zygomys Lisp run in
// a sandbox with a small set of builtins (vertex, edge, cell, dim,
// thickness, ...) that build a wire network.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/lattice/pkg/wire"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
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

// Program is the result of a successful evaluation.
type Program struct {
	Network *wire.Network
	// Thickness is the default beam thickness set by the script, or 0.
	Thickness float64
	// Validation holds the findings of wire.Validate on Network. Scripts
	// may describe networks that cannot be inflated yet; callers decide.
	Validation wire.ValidationResult
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs a lattice script and returns the network it describes.
//
// Return semantics:
//   - On success: returns program + nil errors + nil error
//   - On parse/eval failure: returns nil program + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Program, []EvalError, error) {
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

		p, evalErrs, err := e.evaluate(source)
		ch <- evalResult{program: p, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Program, []EvalError, error) {
	b := newBuilder()
	if strings.TrimSpace(source) != "" {
		// Sandbox mode keeps scripts away from the filesystem and syscalls.
		env := zygo.NewZlispSandbox()
		defer env.Stop()
		registerBuiltins(env, b)

		if err := env.LoadString(preprocessSource(source)); err != nil {
			return nil, parseZygomysError(err), nil
		}
		if _, err := env.Run(); err != nil {
			return nil, parseZygomysError(err), nil
		}
	}

	net, err := b.network()
	if err != nil {
		return nil, []EvalError{{Message: err.Error()}}, nil
	}
	return &Program{Network: net, Thickness: b.thickness, Validation: wire.Validate(net)}, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values,
// extracting the line number when the message carries one.
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
