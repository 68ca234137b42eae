// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"bytes"
	"maps"
	"slices"
	"sync"
	"testing"
)

// recorder collects the order in which hooks, filters, and handlers
// run.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// runResult is what the fixture commands return.
type runResult struct {
	Args        Args
	ToolContext ToolContext
	CommandPath []string
}

func echoRun(events *recorder) RunFunc {
	return func(execution *Execution) (any, error) {
		if events != nil {
			events.record("run")
		}
		return runResult{
			Args:        execution.Args,
			ToolContext: maps.Clone(execution.ToolContext),
			CommandPath: execution.CommandPath,
		}, nil
	}
}

// fixtureRegistry builds this tree:
//
//	sky [--project]            filter: context[project]
//	├── c2                     leaf, no flags
//	├── g [--gflag]            filter: context[k] = 1
//	│   ├── c [--x!, --y=v, --z]
//	│   └── sub
//	│       └── deep NAME [EXTRA ...]
//	└── hidden_cmd (hidden)
func fixtureRegistry(t *testing.T, events *recorder) *Registry {
	t.Helper()
	registry := NewRegistry()
	registry.MustRegister("sky", GroupModule{
		Help: "Sky test CLI.",
		Args: func(parser *ArgumentInterceptor) error {
			return parser.AddArgument("--project", ArgOptions{Short: "p", Help: "Project to operate on."})
		},
		Filter: func(toolContext ToolContext, config Config, args Args) error {
			if events != nil {
				events.record("filter:sky")
			}
			if project := args.String("project"); project != "" {
				toolContext["project"] = project
			}
			return nil
		},
	})
	registry.MustRegister("sky.c2", CommandModule{
		Help: "Sibling command.",
		Run:  echoRun(events),
	})
	registry.MustRegister("sky.g", GroupModule{
		Help: "Group g.\n\n    Longer description of g.\n    Second line.",
		Args: func(parser *ArgumentInterceptor) error {
			return parser.AddArgument("--gflag", ArgOptions{Help: "A group flag."})
		},
		Filter: func(toolContext ToolContext, config Config, args Args) error {
			if events != nil {
				events.record("filter:g")
			}
			toolContext["k"] = 1
			return nil
		},
	})
	registry.MustRegister("sky.g.c", CommandModule{
		Help: "Command c.",
		Args: func(parser *ArgumentInterceptor) error {
			if err := parser.AddArgument("--x", ArgOptions{Required: true, Help: "Required x."}); err != nil {
				return err
			}
			if err := parser.AddArgument("--y", ArgOptions{Default: "v", Help: "Optional y."}); err != nil {
				return err
			}
			return parser.AddArgument("--z", ArgOptions{Help: "Leaf-only z."})
		},
		Examples: []Example{{Description: "Run c", Command: "sky g c --x=1"}},
		Run:      echoRun(events),
		Display: func(execution *Execution, result any) error {
			if events != nil {
				events.record("display")
			}
			return nil
		},
	})
	registry.MustRegister("sky.g.sub", GroupModule{Help: "Nested group."})
	registry.MustRegister("sky.g.sub.deep", CommandModule{
		Help: "Deep command.",
		Args: func(parser *ArgumentInterceptor) error {
			if err := parser.AddArgument("name", ArgOptions{Help: "Resource name."}); err != nil {
				return err
			}
			if err := parser.AddArgument("extra", ArgOptions{Nargs: "*", Help: "Extra words."}); err != nil {
				return err
			}
			if err := parser.AddArgument("--count", ArgOptions{Kind: ValueInt, Default: 1}); err != nil {
				return err
			}
			return parser.AddArgument("--format", ArgOptions{Default: "text", Choices: []string{"text", "json"}})
		},
		Run: echoRun(events),
	})
	registry.MustRegister("sky.hidden_cmd", CommandModule{
		Help:   "Hidden command.",
		Hidden: true,
		Run:    echoRun(events),
	})
	return registry
}

type fixture struct {
	cli    *CLI
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newFixture generates the fixture tree. configure adjusts the loader
// options and setup registers tracks, mounts, or hooks; either may be
// nil.
func newFixture(t *testing.T, registry *Registry, configure func(*LoaderOptions), setup func(*CLILoader)) *fixture {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	options := LoaderOptions{
		Name:       "sky",
		Registry:   registry,
		RootModule: "sky",
		Stdout:     stdout,
		Stderr:     stderr,
	}
	if configure != nil {
		configure(&options)
	}
	loader, err := NewCLILoader(options)
	if err != nil {
		t.Fatalf("NewCLILoader: %v", err)
	}
	if setup != nil {
		setup(loader)
	}
	cli, err := loader.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	t.Cleanup(func() { cli.Close() })
	return &fixture{cli: cli, stdout: stdout, stderr: stderr}
}

func resultOf(t *testing.T, value any) runResult {
	t.Helper()
	result, ok := value.(runResult)
	if !ok {
		t.Fatalf("result is %T, want runResult", value)
	}
	return result
}
