// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/calliope/lib/clock"
	"github.com/bureau-foundation/calliope/lib/testutil"
)

func TestScenarioMissingAndMerge(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister("g", GroupModule{Help: "Root."})
	registry.MustRegister("g.c", CommandModule{
		Args: func(parser *ArgumentInterceptor) error {
			if err := parser.AddArgument("--x", ArgOptions{Required: true}); err != nil {
				return err
			}
			return parser.AddArgument("--y", ArgOptions{Default: "v"})
		},
		Run: echoRun(nil),
	})
	f := newFixture(t, registry, func(options *LoaderOptions) {
		options.Name = "g"
		options.RootModule = "g"
	}, nil)

	value, err := f.cli.Execute(context.Background(), []string{"c", "--x", "1"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	args := resultOf(t, value).Args
	if args.String("x") != "1" || args.String("y") != "v" {
		t.Errorf("effective args = %v", args.Map())
	}

	_, err = f.cli.Execute(context.Background(), []string{"c"})
	missing := testutil.RequireErrorAs[*MissingArgumentError](t, err)
	if !slices.Equal(missing.Path, []string{"g", "c"}) || !slices.Equal(missing.Missing, []string{"x"}) {
		t.Errorf("MissingArgumentError = %+v", missing)
	}
}

func TestScenarioFilterIsolation(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)

	value, err := f.cli.Execute(context.Background(), []string{"g", "c", "--x=1"})
	if err != nil {
		t.Fatalf("Execute g c: %v", err)
	}
	if got := resultOf(t, value).ToolContext["k"]; got != 1 {
		t.Errorf("g c observed context[k] = %v, want 1", got)
	}

	value, err = f.cli.Execute(context.Background(), []string{"c2"})
	if err != nil {
		t.Fatalf("Execute c2: %v", err)
	}
	if _, ok := resultOf(t, value).ToolContext["k"]; ok {
		t.Error("c2 observed g's filter")
	}
}

func TestScenarioLeafOnlyDestThroughGroup(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)
	value, err := f.cli.Execute(context.Background(), []string{"g", "c", "--x=1", "--z", "x"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := resultOf(t, value).Args.String("z"); got != "x" {
		t.Errorf("z = %q, want x", got)
	}
}

func TestFlagsResolveAtEveryLevel(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)
	// Ancestor flags may appear before their group or after the leaf.
	value, err := f.cli.Execute(context.Background(), []string{"-p", "demo", "g", "c", "--gflag=on", "--x=1", "--y", "w"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	result := resultOf(t, value)
	want := map[string]any{"project": "demo", "gflag": "on", "x": "1", "y": "w", "z": nil, "verbosity": nil}
	got := result.Args.Map()
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for key, value := range want {
		if got[key] != value {
			t.Errorf("args[%s] = %v, want %v", key, got[key], value)
		}
	}
	if result.ToolContext["project"] != "demo" {
		t.Errorf("root filter did not see --project: %v", result.ToolContext)
	}
	if !slices.Equal(result.CommandPath, []string{"sky", "g", "c"}) {
		t.Errorf("CommandPath = %v", result.CommandPath)
	}
}

func TestPositionals(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)
	tests := []struct {
		name  string
		argv  []string
		check func(t *testing.T, args Args, err error)
	}{
		{
			name: "name and extras interspersed",
			argv: []string{"g", "sub", "deep", "alpha", "--count", "3", "one", "two"},
			check: func(t *testing.T, args Args, err error) {
				if err != nil {
					t.Fatal(err)
				}
				if args.String("name") != "alpha" || args.Int("count") != 3 {
					t.Errorf("args = %v", args.Map())
				}
				if got := args.Strings("extra"); !slices.Equal(got, []string{"one", "two"}) {
					t.Errorf("extra = %v", got)
				}
			},
		},
		{
			name: "defaults",
			argv: []string{"g", "sub", "deep", "alpha"},
			check: func(t *testing.T, args Args, err error) {
				if err != nil {
					t.Fatal(err)
				}
				if args.Int("count") != 1 || args.String("format") != "text" {
					t.Errorf("args = %v", args.Map())
				}
				if value, ok := args.Get("extra"); !ok || value != nil {
					t.Errorf("extra = %v, %v; want present nil", value, ok)
				}
			},
		},
		{
			name: "missing required positional",
			argv: []string{"g", "sub", "deep"},
			check: func(t *testing.T, args Args, err error) {
				missing := testutil.RequireErrorAs[*MissingArgumentError](t, err)
				if !slices.Equal(missing.Missing, []string{"name"}) {
					t.Errorf("Missing = %v", missing.Missing)
				}
			},
		},
		{
			name: "choice violation",
			argv: []string{"g", "sub", "deep", "alpha", "--format", "yaml"},
			check: func(t *testing.T, args Args, err error) {
				invalid := testutil.RequireErrorAs[*InvalidValueError](t, err)
				if invalid.Dest != "format" {
					t.Errorf("InvalidValueError.Dest = %q", invalid.Dest)
				}
			},
		},
		{
			name: "bad int",
			argv: []string{"g", "sub", "deep", "alpha", "--count", "many"},
			check: func(t *testing.T, args Args, err error) {
				toolError := testutil.RequireErrorAs[*ToolError](t, err)
				if toolError.Category != CategoryValidation {
					t.Errorf("Category = %s", toolError.Category)
				}
			},
		},
		{
			name: "extra word for fixed positionals",
			argv: []string{"g", "c", "--x=1", "stray"},
			check: func(t *testing.T, args Args, err error) {
				unexpected := testutil.RequireErrorAs[*UnexpectedArgumentError](t, err)
				if !slices.Equal(unexpected.Unexpected, []string{"stray"}) {
					t.Errorf("Unexpected = %v", unexpected.Unexpected)
				}
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			value, err := f.cli.Execute(context.Background(), test.argv)
			var args Args
			if err == nil {
				args = resultOf(t, value).Args
			}
			test.check(t, args, err)
		})
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)
	_, err := f.cli.Execute(context.Background(), []string{"g", "cc"})
	unknown := testutil.RequireErrorAs[*UnknownCommandError](t, err)
	if unknown.Name != "cc" || unknown.Suggestion != "c" {
		t.Errorf("UnknownCommandError = %+v", unknown)
	}
	if !slices.Equal(unknown.Path, []string{"sky", "g"}) {
		t.Errorf("Path = %v", unknown.Path)
	}
	if !strings.Contains(err.Error(), `did you mean "c"`) {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestUnknownCommandAlternateTracks(t *testing.T) {
	f := newFixture(t, trackRegistry(t), nil, withTracks(t))

	tests := []struct {
		name         string
		argv         []string
		alternatives [][]string
		suggestion   string
	}{
		{"beta only", []string{"preview"}, [][]string{{"sky", "beta", "preview"}}, ""},
		{"alpha only", []string{"g", "experimental"}, [][]string{{"sky", "alpha", "g", "experimental"}}, ""},
		{"typo", []string{"g", "cc"}, nil, "c"},
		{"typo in a track", []string{"beta", "previe"}, nil, "preview"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := f.cli.Execute(context.Background(), test.argv)
			unknown := testutil.RequireErrorAs[*UnknownCommandError](t, err)
			if !slices.EqualFunc(unknown.Alternatives, test.alternatives, slices.Equal[[]string]) {
				t.Errorf("Alternatives = %v, want %v", unknown.Alternatives, test.alternatives)
			}
			if unknown.Suggestion != test.suggestion {
				t.Errorf("Suggestion = %q, want %q", unknown.Suggestion, test.suggestion)
			}
			for _, alternative := range test.alternatives {
				if want := "\n  " + strings.Join(alternative, " "); !strings.Contains(err.Error(), want) {
					t.Errorf("Error() = %q, want it to contain %q", err.Error(), want)
				}
			}
			if len(test.alternatives) > 0 && !strings.Contains(err.Error(), "available in one or more alternate release tracks") {
				t.Errorf("Error() = %q", err.Error())
			}
		})
	}
}

func TestUnknownFlagSuggestion(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)
	_, err := f.cli.Execute(context.Background(), []string{"g", "c", "--x=1", "--zz=3"})
	toolError := testutil.RequireErrorAs[*ToolError](t, err)
	if toolError.Category != CategoryValidation {
		t.Errorf("Category = %s", toolError.Category)
	}
	if !strings.Contains(toolError.Hint, "--") {
		t.Errorf("Hint = %q, want a flag suggestion", toolError.Hint)
	}
}

func TestGroupWithoutCommand(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)
	_, err := f.cli.Execute(context.Background(), []string{"g"})
	toolError := testutil.RequireErrorAs[*ToolError](t, err)
	if !strings.Contains(toolError.Error(), "requires a command") {
		t.Errorf("Error() = %q", toolError.Error())
	}
}

func TestHelp(t *testing.T) {
	var helpCalls []string
	f := newFixture(t, fixtureRegistry(t, nil), func(options *LoaderOptions) {
		options.HelpFunc = func(w io.Writer, node Node, commandPath []string) error {
			helpCalls = append(helpCalls, strings.Join(commandPath, " "))
			fmt.Fprintf(w, "FULL HELP %s\n", node.Name())
			return nil
		}
	}, nil)

	value, err := f.cli.Execute(context.Background(), []string{"g", "c", "-h"})
	if err != nil || value != nil {
		t.Fatalf("Execute -h = %v, %v", value, err)
	}
	usage := f.stdout.String()
	for _, want := range []string{
		"Command c.",
		"Usage:\n  sky g c [flags]",
		"--x string",
		"Inherited flags:",
		"--gflag string",
		"--project string",
		"# Run c",
	} {
		if !strings.Contains(usage, want) {
			t.Errorf("usage missing %q:\n%s", want, usage)
		}
	}
	if len(helpCalls) != 0 {
		t.Errorf("-h called the detailed help function")
	}

	f.stdout.Reset()
	if _, err := f.cli.Execute(context.Background(), []string{"g", "--help"}); err != nil {
		t.Fatalf("Execute --help: %v", err)
	}
	if !slices.Equal(helpCalls, []string{"sky g"}) || !strings.Contains(f.stdout.String(), "FULL HELP g") {
		t.Errorf("--help calls = %v, output %q", helpCalls, f.stdout.String())
	}

	f.stdout.Reset()
	if _, err := f.cli.Execute(context.Background(), []string{"help"}); err != nil {
		t.Fatalf("Execute help: %v", err)
	}
	rootUsage := f.stdout.String()
	if !strings.Contains(rootUsage, "Groups:") || !strings.Contains(rootUsage, "Commands:") {
		t.Errorf("root usage lacks listings:\n%s", rootUsage)
	}
	if strings.Contains(rootUsage, "hidden-cmd") {
		t.Errorf("root usage lists a hidden command:\n%s", rootUsage)
	}
}

func TestHelpFollowsReleaseTrack(t *testing.T) {
	f := newFixture(t, trackRegistry(t), nil, withTracks(t))

	tests := []struct {
		name   string
		argv   []string
		wants  []string
		absent []string
	}{
		{
			name:   "GA command",
			argv:   []string{"c2", "-h"},
			wants:  []string{"Sibling command.", "Usage:\n  sky c2 [flags]"},
			absent: []string{"(BETA)", Beta.Notice},
		},
		{
			name:  "GA command shared into beta",
			argv:  []string{"beta", "c2", "-h"},
			wants: []string{"(BETA) Sibling command.", "Usage:\n  sky beta c2 [flags]", Beta.Notice},
		},
		{
			name:  "GA group shared into beta",
			argv:  []string{"beta", "g", "-h"},
			wants: []string{"(BETA) Group g.", "(BETA) Command c.", "(BETA) Nested group.", Beta.Notice},
		},
		{
			name:   "beta command",
			argv:   []string{"beta", "preview", "-h"},
			wants:  []string{"(BETA) Beta preview.", Beta.Notice},
			absent: []string{"ALPHA"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f.stdout.Reset()
			if _, err := f.cli.Execute(context.Background(), test.argv); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			usage := f.stdout.String()
			for _, want := range test.wants {
				if !strings.Contains(usage, want) {
					t.Errorf("usage lacks %q:\n%s", want, usage)
				}
			}
			for _, unwanted := range test.absent {
				if strings.Contains(usage, unwanted) {
					t.Errorf("usage contains %q:\n%s", unwanted, usage)
				}
			}
		})
	}
}

func TestHelpListsChildrenOfHiddenGroup(t *testing.T) {
	registry := fixtureRegistry(t, nil)
	registry.MustRegister("sky.internal", GroupModule{Help: "Internal tools.", Hidden: true})
	registry.MustRegister("sky.internal.dump", CommandModule{Help: "Dump state.", Run: echoRun(nil)})
	f := newFixture(t, registry, nil, nil)

	if _, err := f.cli.Execute(context.Background(), []string{"internal", "-h"}); err != nil {
		t.Fatal(err)
	}
	if usage := f.stdout.String(); !strings.Contains(usage, "dump") {
		t.Errorf("hidden group usage does not list its commands:\n%s", usage)
	}

	f.stdout.Reset()
	if _, err := f.cli.Execute(context.Background(), []string{"-h"}); err != nil {
		t.Fatal(err)
	}
	if usage := f.stdout.String(); strings.Contains(usage, "internal") {
		t.Errorf("root usage lists a hidden group:\n%s", usage)
	}
}

func TestHelpPositionalSynopsis(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)
	if _, err := f.cli.Execute(context.Background(), []string{"g", "sub", "deep", "-h"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.stdout.String(), "sky g sub deep NAME [EXTRA ...] [flags]") {
		t.Errorf("usage line:\n%s", f.stdout.String())
	}
}

func TestVersion(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), func(options *LoaderOptions) {
		options.VersionFunc = func() string { return "sky 1.2.3" }
	}, nil)
	for _, argv := range [][]string{{"--version"}, {"-v"}, {"-v", "g", "c"}} {
		f.stdout.Reset()
		value, err := f.cli.Execute(context.Background(), argv)
		if err != nil || value != nil {
			t.Fatalf("Execute(%v) = %v, %v", argv, value, err)
		}
		if f.stdout.String() != "sky 1.2.3\n" {
			t.Errorf("Execute(%v) printed %q", argv, f.stdout.String())
		}
	}
}

func TestVerbosity(t *testing.T) {
	registry := fixtureRegistry(t, nil)
	registry.MustRegister("sky.noisy", CommandModule{
		Run: func(execution *Execution) (any, error) {
			execution.Logger.Info("info record")
			execution.Logger.Debug("debug record")
			return nil, nil
		},
	})
	f := newFixture(t, registry, nil, nil)

	if _, err := f.cli.Execute(context.Background(), []string{"noisy"}); err != nil {
		t.Fatal(err)
	}
	if output := f.stderr.String(); !strings.Contains(output, "info record") || strings.Contains(output, "debug record") {
		t.Errorf("default verbosity output:\n%s", output)
	}

	f.stderr.Reset()
	if _, err := f.cli.Execute(context.Background(), []string{"--verbosity=0", "noisy"}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(f.stderr.String(), "info record") {
		t.Errorf("--verbosity=0 printed info:\n%s", f.stderr.String())
	}

	f.stderr.Reset()
	if _, err := f.cli.Execute(context.Background(), []string{"noisy", "--verbosity", "3"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.stderr.String(), "debug record") {
		t.Errorf("--verbosity=3 omitted debug:\n%s", f.stderr.String())
	}

	_, err := f.cli.Execute(context.Background(), []string{"--verbosity=7", "noisy"})
	testutil.RequireErrorAs[*InvalidValueError](t, err)
}

func TestRunHooksAndPipelineOrder(t *testing.T) {
	events := new(recorder)
	f := newFixture(t, fixtureRegistry(t, events), nil, func(loader *CLILoader) {
		loader.RegisterPreRunHook(func(path string) error {
			events.record("pre:" + path)
			return nil
		}, `sky\.g`, `sky\.g\.sub`)
		loader.RegisterPostRunHook(func(path string) error {
			events.record("post:" + path)
			return nil
		}, "", "")
	})

	if _, err := f.cli.Execute(context.Background(), []string{"g", "c", "--x=1"}); err != nil {
		t.Fatal(err)
	}
	want := []string{"pre:sky.g.c", "filter:sky", "filter:g", "run", "post:sky.g.c", "display"}
	if got := events.snapshot(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	events.events = nil
	if _, err := f.cli.Execute(context.Background(), []string{"g", "sub", "deep", "n"}); err != nil {
		t.Fatal(err)
	}
	want = []string{"filter:sky", "filter:g", "run", "post:sky.g.sub.deep"}
	if got := events.snapshot(); !slices.Equal(got, want) {
		t.Errorf("excluded path events = %v, want %v", got, want)
	}
}

func TestHookErrorAborts(t *testing.T) {
	events := new(recorder)
	hookErr := errors.New("quota exceeded")
	f := newFixture(t, fixtureRegistry(t, events), nil, func(loader *CLILoader) {
		loader.RegisterPreRunHook(func(string) error { return hookErr }, "", "")
		loader.RegisterPostRunHook(func(path string) error {
			events.record("post")
			return nil
		}, "", "")
	})
	_, err := f.cli.Execute(context.Background(), []string{"c2"})
	if !errors.Is(err, hookErr) {
		t.Fatalf("Execute = %v, want %v", err, hookErr)
	}
	if got := events.snapshot(); slices.Contains(got, "run") || slices.Contains(got, "post") {
		t.Errorf("events after hook failure = %v", got)
	}
}

func TestPreRunHooksPrecedeFilters(t *testing.T) {
	events := new(recorder)
	filterErr := errors.New("filter rejected the invocation")
	registry := fixtureRegistry(t, events)
	registry.MustRegister("sky.strict", GroupModule{
		Filter: func(ToolContext, Config, Args) error {
			events.record("filter:strict")
			return filterErr
		},
	})
	registry.MustRegister("sky.strict.cmd", CommandModule{Run: echoRun(events)})
	f := newFixture(t, registry, nil, func(loader *CLILoader) {
		loader.RegisterPreRunHook(func(path string) error {
			events.record("pre:" + path)
			return nil
		}, "", "")
	})

	_, err := f.cli.Execute(context.Background(), []string{"strict", "cmd"})
	if !errors.Is(err, filterErr) {
		t.Fatalf("Execute = %v, want %v", err, filterErr)
	}
	want := []string{"pre:sky.strict.cmd", "filter:sky", "filter:strict"}
	if got := events.snapshot(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestInvalidHookPattern(t *testing.T) {
	loader, err := NewCLILoader(LoaderOptions{Name: "sky", Registry: NewRegistry(), RootModule: "sky"})
	if err != nil {
		t.Fatal(err)
	}
	if err := loader.RegisterPreRunHook(func(string) error { return nil }, "(", ""); err == nil {
		t.Error("RegisterPreRunHook accepted an invalid pattern")
	}
	if err := loader.RegisterPostRunHook(nil, "", ""); err == nil {
		t.Error("RegisterPostRunHook accepted a nil function")
	}
}

func TestRunFailureSkipsPostHooksAndSave(t *testing.T) {
	events := new(recorder)
	registry := fixtureRegistry(t, events)
	registry.MustRegister("sky.fail", CommandModule{
		Run: func(execution *Execution) (any, error) {
			execution.Config["touched"] = true
			return nil, NotFound("widget %q does not exist", "w1")
		},
	})
	configFile := testutil.ConfigFile(t)
	f := newFixture(t, registry, func(options *LoaderOptions) {
		options.ConfigFile = configFile
	}, func(loader *CLILoader) {
		loader.RegisterPostRunHook(func(string) error {
			events.record("post")
			return nil
		}, "", "")
	})

	_, err := f.cli.Execute(context.Background(), []string{"fail"})
	toolError := testutil.RequireErrorAs[*ToolError](t, err)
	if toolError.Category != CategoryNotFound || toolError.CommandPath != "sky.fail" {
		t.Errorf("ToolError = %+v", toolError)
	}
	if slices.Contains(events.snapshot(), "post") {
		t.Error("post-run hook ran after a failure")
	}
	if _, statErr := os.Stat(configFile); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("config was saved after a failure: %v", statErr)
	}
}

func TestConfigPersistence(t *testing.T) {
	registry := fixtureRegistry(t, nil)
	registry.MustRegister("sky.remember", CommandModule{
		Args: func(parser *ArgumentInterceptor) error {
			return parser.AddArgument("value", ArgOptions{})
		},
		Run: func(execution *Execution) (any, error) {
			previous := execution.Config["remembered"]
			execution.Config["remembered"] = execution.Args.String("value")
			return previous, nil
		},
	})
	configFile := testutil.ConfigFile(t)
	f := newFixture(t, registry, func(options *LoaderOptions) {
		options.ConfigFile = configFile
		options.LoadContext = func(config Config) (ToolContext, error) {
			return ToolContext{"configured": config["remembered"]}, nil
		}
	}, nil)

	first, err := f.cli.Execute(context.Background(), []string{"remember", "one"})
	if err != nil || first != nil {
		t.Fatalf("first Execute = %v, %v", first, err)
	}
	second, err := f.cli.Execute(context.Background(), []string{"remember", "two"})
	if err != nil || second != "one" {
		t.Fatalf("second Execute = %v, %v; want one", second, err)
	}

	value, err := f.cli.Execute(context.Background(), []string{"c2"})
	if err != nil {
		t.Fatal(err)
	}
	if got := resultOf(t, value).ToolContext["configured"]; got != "two" {
		t.Errorf("context built from config = %v, want two", got)
	}
}

func TestRunExitCodes(t *testing.T) {
	knownErr := errors.New("known recoverable problem")
	registry := fixtureRegistry(t, nil)
	registry.MustRegister("sky.exit", CommandModule{
		Run: func(*Execution) (any, error) { return nil, &ExitError{Code: 3} },
	})
	registry.MustRegister("sky.known", CommandModule{
		Run: func(*Execution) (any, error) { return nil, fmt.Errorf("wrapped: %w", knownErr) },
	})
	registry.MustRegister("sky.boom", CommandModule{
		Run: func(*Execution) (any, error) { return nil, errors.New("nil pointer somewhere") },
	})
	f := newFixture(t, registry, func(options *LoaderOptions) {
		options.LogsDir = t.TempDir()
		options.KnownErrors = []func(error) bool{
			func(err error) bool { return errors.Is(err, knownErr) },
		}
	}, nil)

	tests := []struct {
		name       string
		argv       []string
		wantCode   int
		wantErr    bool
		wantStderr string
	}{
		{name: "success", argv: []string{"c2"}, wantCode: 0},
		{name: "tool error", argv: []string{"g", "c"}, wantCode: 1,
			wantStderr: "ERROR: (sky.g.c) The following required arguments were not provided for command [sky.g.c]: [x]"},
		{name: "unknown command", argv: []string{"nope"}, wantCode: 1, wantStderr: "ERROR: (sky) Invalid choice"},
		{name: "exit error", argv: []string{"exit"}, wantCode: 3},
		{name: "known error", argv: []string{"known"}, wantCode: 1, wantStderr: "ERROR: (sky.known) wrapped: known recoverable problem"},
		{name: "unexpected error", argv: []string{"boom"}, wantCode: 1, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f.stderr.Reset()
			code, err := f.cli.Run(context.Background(), test.argv)
			if code != test.wantCode {
				t.Errorf("exit code = %d, want %d", code, test.wantCode)
			}
			if (err != nil) != test.wantErr {
				t.Errorf("Run error = %v, wantErr %v", err, test.wantErr)
			}
			if test.wantStderr != "" && !strings.Contains(f.stderr.String(), test.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", f.stderr.String(), test.wantStderr)
			}
			if test.wantStderr == "" && strings.Contains(f.stderr.String(), "ERROR:") {
				t.Errorf("unexpected error report: %q", f.stderr.String())
			}
		})
	}

	logData, err := os.ReadFile(f.cli.LogFile())
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(logData), "nil pointer somewhere") || !strings.Contains(string(logData), "required arguments") {
		t.Errorf("log file lacks the full errors:\n%s", logData)
	}
}

func TestConcurrentExecute(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)
	type outcome struct {
		want string
		got  string
		err  error
	}
	results := make(chan outcome)
	const workers = 8
	for i := 0; i < workers; i++ {
		project := testutil.UniqueName("project")
		go func() {
			value, err := f.cli.Execute(context.Background(), []string{"--project", project, "g", "c", "--x", project})
			if err != nil {
				results <- outcome{want: project, err: err}
				return
			}
			result := value.(runResult)
			results <- outcome{want: project, got: result.ToolContext["project"].(string) + "/" + result.Args.String("x")}
		}()
	}
	for i := 0; i < workers; i++ {
		result := testutil.RequireReceive[outcome](t, results, 10*time.Second, "waiting for invocation %d", i)
		if result.err != nil {
			t.Errorf("Execute: %v", result.err)
			continue
		}
		if result.got != result.want+"/"+result.want {
			t.Errorf("invocation for %s observed %s", result.want, result.got)
		}
	}
}

func TestSharedToolErrorIsNotModified(t *testing.T) {
	sentinel := Validation("quota exhausted")
	registry := fixtureRegistry(t, nil)
	registry.MustRegister("sky.quota", CommandModule{
		Run: func(*Execution) (any, error) { return nil, sentinel },
	})
	f := newFixture(t, registry, nil, nil)

	const workers = 8
	results := make(chan error)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := f.cli.Execute(context.Background(), []string{"quota"})
			results <- err
		}()
	}
	for i := 0; i < workers; i++ {
		err := testutil.RequireReceive[error](t, results, 10*time.Second, "waiting for invocation %d", i)
		if !errors.Is(err, sentinel) {
			t.Errorf("Execute = %v, want it to wrap the handler error", err)
		}
		toolError := testutil.RequireErrorAs[*ToolError](t, err)
		if toolError.CommandPath != "sky.quota" || toolError.Category != CategoryValidation {
			t.Errorf("ToolError = %+v", toolError)
		}
	}
	if sentinel.CommandPath != "" {
		t.Errorf("handler error was annotated in place with %q", sentinel.CommandPath)
	}
}

func TestCommandTimingIsLogged(t *testing.T) {
	fake := clock.Fake(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))
	registry := fixtureRegistry(t, nil)
	registry.MustRegister("sky.slow", CommandModule{
		Run: func(*Execution) (any, error) {
			fake.Advance(1500 * time.Millisecond)
			return nil, nil
		},
	})
	f := newFixture(t, registry, func(options *LoaderOptions) {
		options.LogsDir = t.TempDir()
		options.Clock = fake
	}, nil)

	if _, err := f.cli.Execute(context.Background(), []string{"slow"}); err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("2026.03.01", "09.30.00.000000.log"); !strings.HasSuffix(f.cli.LogFile(), want) {
		t.Errorf("LogFile() = %q, want a name ending in %q", f.cli.LogFile(), want)
	}
	logData, err := os.ReadFile(f.cli.LogFile())
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	for _, want := range []string{`"msg":"command finished"`, `"elapsed":1500000000`, `"failed":false`} {
		if !strings.Contains(string(logData), want) {
			t.Errorf("log file lacks %s:\n%s", want, logData)
		}
	}
}
