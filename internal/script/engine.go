// Package script evaluates shape scripts written in zygomys, a Lisp dialect.
// Builtins mirror the csgsdf builder API:
//
//	(def body (Union [(Sphere 1) (translate (Box 1 1 1) (Vector 0 0 1))]))
//	(smooth body 0.2)
//
// The value of the last expression is the resulting shape.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/soypat/csgsdf"
)

// EvalError is a script error. Line is 1-based and zero when unknown.
type EvalError struct {
	Line    int
	Message string
}

func (e *EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates scripts into shapes. Each evaluation runs in a fresh sandbox
// so scripts cannot observe each other.
type Engine struct {
	sink io.Writer
}

// NewEngine returns an Engine writing print output and error messages to sink.
// A nil sink discards them.
func NewEngine(sink io.Writer) *Engine {
	if sink == nil {
		sink = io.Discard
	}
	return &Engine{sink: sink}
}

type evalResult struct {
	shape csgsdf.Shape
	err   error
}

// Eval runs source and returns the shape its last expression evaluates to.
// Every failure, including ctx expiring, is written to the sink and returned as an *EvalError.
func (e *Engine) Eval(ctx context.Context, source string) (csgsdf.Shape, error) {
	shape, err := e.eval(ctx, source)
	if err != nil {
		var evalErr *EvalError
		if !errors.As(err, &evalErr) {
			evalErr = &EvalError{Message: err.Error()}
		}
		fmt.Fprintf(e.sink, "error: %s\n", evalErr)
		return nil, evalErr
	}
	return shape, nil
}

func (e *Engine) eval(ctx context.Context, source string) (csgsdf.Shape, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("empty script")
	}
	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		shape, err := e.run(source)
		ch <- evalResult{shape: shape, err: err}
	}()
	// On expiry the goroutine is abandoned; its buffered send never blocks.
	select {
	case res := <-ch:
		return res.shape, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("evaluation stopped: %w", context.Cause(ctx))
	}
}

func (e *Engine) run(source string) (csgsdf.Shape, error) {
	env := zygo.NewZlispWithFuncs(sandboxFunctions(e.sink))
	defer env.Stop()
	err := env.LoadString(source)
	if err != nil {
		return nil, parseZygomysError(err)
	}
	result, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err)
	}
	shape, ok := result.(*sexpShape)
	if !ok {
		return nil, &EvalError{Message: fmt.Sprintf("script must end with a shape, got %s", describe(result))}
	}
	return shape.s, nil
}

var (
	linePattern      = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)
	linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)
)

func parseZygomysError(err error) *EvalError {
	msg := strings.TrimSpace(err.Error())
	for _, pattern := range []*regexp.Regexp{linePattern, linePatternShort} {
		loc := pattern.FindStringSubmatchIndex(msg)
		if loc == nil {
			continue
		}
		line, _ := strconv.Atoi(msg[loc[2]:loc[3]])
		// Drop only the position prefix, builtin errors may precede or follow it.
		rest := strings.TrimSpace(msg[:loc[0]] + msg[loc[4]:])
		return &EvalError{Line: line, Message: rest}
	}
	return &EvalError{Message: msg}
}
