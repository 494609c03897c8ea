// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Phase identifies one step of the build pipeline.
type Phase int

const (
	// PhasePrepare runs before the build; failures are tolerated.
	PhasePrepare Phase = iota
	// PhaseBuild compiles the software; failures abort the run.
	PhaseBuild
	// PhaseCheck runs the test suite; failures are tolerated.
	PhaseCheck
	// PhasePackage installs into the stage tree; failures abort the run.
	PhasePackage
)

// Phases returns every phase in pipeline order.
func Phases() []Phase {
	return []Phase{PhasePrepare, PhaseBuild, PhaseCheck, PhasePackage}
}

// String returns the phase name as it appears in recipes and logs.
func (p Phase) String() string {
	switch p {
	case PhasePrepare:
		return "prepare"
	case PhaseBuild:
		return "build"
	case PhaseCheck:
		return "check"
	case PhasePackage:
		return "package"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Soft reports whether a non-zero exit from this phase is tolerated.
func (p Phase) Soft() bool {
	return p == PhasePrepare || p == PhaseCheck
}

// RunContext is everything an action needs to execute: the source
// directory to run in, the environment contract, and the build log sink.
type RunContext struct {
	// Dir is the working directory (the unpacked source tree).
	Dir string
	// Env is the environment contract exported to the phase (CC, CXX, AR,
	// RANLIB, CFLAGS, LDFLAGS, JOBS, PREFIX, STAGE, DESTDIR).
	Env map[string]string
	// Log receives the phase's combined stdout and stderr.
	Log io.Writer
}

// environ flattens the process environment plus the contract into the
// KEY=value form subprocesses and the interpreter expect. Contract keys
// override inherited ones.
func (rc *RunContext) environ() []string {
	keys := make([]string, 0, len(rc.Env))
	for k := range rc.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+rc.Env[k])
	}
	return env
}

// StatusError reports a phase action exiting non-zero.
type StatusError struct {
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Action is one executable phase behavior. User-supplied scripts and the
// built-in defaults are two variants of this same type.
type Action interface {
	// Run executes the action. A non-zero exit surfaces as *StatusError.
	Run(ctx context.Context, rc *RunContext) error
	// Describe names the action for the build log.
	Describe() string
}

// PhaseScripts is the recipe's phases mapping.
type PhaseScripts struct {
	Prepare string `json:"prepare,omitempty"`
	Build   string `json:"build,omitempty"`
	Check   string `json:"check,omitempty"`
	Package string `json:"package,omitempty"`
}

// script returns the user script for p, "" when the recipe omits it.
func (s PhaseScripts) script(p Phase) string {
	switch p {
	case PhasePrepare:
		return s.Prepare
	case PhaseBuild:
		return s.Build
	case PhaseCheck:
		return s.Check
	case PhasePackage:
		return s.Package
	default:
		return ""
	}
}

// ActionFor binds a phase to its action: the recipe's script when one is
// defined, the default otherwise.
func (r *Recipe) ActionFor(p Phase) Action {
	if script := r.Phases.script(p); strings.TrimSpace(script) != "" {
		return &ScriptAction{Script: script, phase: p}
	}
	return defaultActions[p]
}

// ScriptAction runs a recipe-defined POSIX script under the embedded
// mvdan/sh interpreter.
type ScriptAction struct {
	// Script is the shell source from the recipe.
	Script string

	phase Phase
}

// Describe implements Action.
func (a *ScriptAction) Describe() string {
	return fmt.Sprintf("recipe %s script", a.phase)
}

// Run implements Action.
func (a *ScriptAction) Run(ctx context.Context, rc *RunContext) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(a.Script), a.phase.String())
	if err != nil {
		return fmt.Errorf("script syntax error: %w", err)
	}

	runner, err := interp.New(
		interp.Dir(rc.Dir),
		interp.Env(expand.ListEnviron(rc.environ()...)),
		interp.StdIO(nil, rc.Log, rc.Log),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &StatusError{Code: int(exitStatus)}
		}
		return err
	}
	return nil
}

// defaultAction is a built-in phase behavior implemented in Go.
type defaultAction struct {
	name string
	run  func(ctx context.Context, rc *RunContext) error
}

// Describe implements Action.
func (a *defaultAction) Describe() string { return a.name }

// Run implements Action.
func (a *defaultAction) Run(ctx context.Context, rc *RunContext) error {
	return a.run(ctx, rc)
}

var defaultActions = map[Phase]Action{
	PhasePrepare: &defaultAction{
		name: "default prepare (no-op)",
		run: func(context.Context, *RunContext) error {
			return nil
		},
	},
	PhaseBuild: &defaultAction{
		name: "default build (configure && make)",
		run: func(ctx context.Context, rc *RunContext) error {
			configure := filepath.Join(rc.Dir, "configure")
			if info, err := os.Stat(configure); err == nil && info.Mode()&0o111 != 0 {
				if err := runTool(ctx, rc, "./configure", "--prefix="+rc.Env["PREFIX"]); err != nil {
					return err
				}
			}
			return runTool(ctx, rc, "make", "-j"+rc.Env["JOBS"])
		},
	},
	PhaseCheck: &defaultAction{
		name: "default check (make -k check)",
		run: func(ctx context.Context, rc *RunContext) error {
			// A failing test suite must not abort the pipeline.
			err := runTool(ctx, rc, "make", "-k", "check")
			var status *StatusError
			if errors.As(err, &status) {
				fmt.Fprintf(rc.Log, "make check exited %d (ignored)\n", status.Code)
				return nil
			}
			return err
		},
	},
	PhasePackage: &defaultAction{
		name: "default package (make install)",
		run: func(ctx context.Context, rc *RunContext) error {
			return runTool(ctx, rc, "make", "DESTDIR="+rc.Env["STAGE"], "install")
		},
	},
}

// runTool executes one subprocess inside the run context, translating a
// non-zero exit into *StatusError.
func runTool(ctx context.Context, rc *RunContext, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = rc.Dir
	cmd.Env = rc.environ()
	cmd.Stdout = rc.Log
	cmd.Stderr = rc.Log

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &StatusError{Code: exitErr.ExitCode()}
	}
	return err
}
