// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"context"
	"slices"
	"testing"

	"github.com/bureau-foundation/calliope/lib/testutil"
)

func TestBinderCall(t *testing.T) {
	events := new(recorder)
	f := newFixture(t, fixtureRegistry(t, events), nil, func(loader *CLILoader) {
		loader.RegisterPreRunHook(func(string) error {
			events.record("pre")
			return nil
		}, "", "")
	})

	root, err := f.cli.EntryPoint().Bind(map[string]any{"project": "demo"})
	if err != nil {
		t.Fatalf("Bind root: %v", err)
	}
	ref, err := root.Resolve("g")
	if err != nil || ref.Kind != KindGroup {
		t.Fatalf("Resolve(g) = %+v, %v", ref, err)
	}
	group, err := ref.Group.Bind(map[string]any{"gflag": "on"})
	if err != nil {
		t.Fatalf("Bind g: %v", err)
	}
	ref, err = group.Resolve("c")
	if err != nil || ref.Kind != KindLeaf {
		t.Fatalf("Resolve(c) = %+v, %v", ref, err)
	}
	command := ref.Command

	if got, want := command.String(), "sky(project='demo').g(gflag='on').c"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := command.Path(); !slices.Equal(got, []string{"sky", "g", "c"}) {
		t.Errorf("Path() = %v", got)
	}
	if command.ParentGroup() != group || group.ParentGroup() != root {
		t.Error("parent links do not follow the resolution")
	}
	if command.Doc() != "Command c." {
		t.Errorf("Doc() = %q", command.Doc())
	}

	value, err := command.Call(context.Background(), map[string]any{"x": "1"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	result := resultOf(t, value)
	for key, want := range map[string]any{"project": "demo", "gflag": "on", "x": "1", "y": "v"} {
		if got, _ := result.Args.Get(key); got != want {
			t.Errorf("args[%s] = %v, want %v", key, got, want)
		}
	}
	if result.ToolContext["project"] != "demo" || result.ToolContext["k"] != 1 {
		t.Errorf("filters did not run: %v", result.ToolContext)
	}
	want := []string{"filter:sky", "filter:g", "run", "display"}
	if got := events.snapshot(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v (run hooks must not apply)", got, want)
	}
}

func TestBinderErrors(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)
	entry := f.cli.EntryPoint()

	t.Run("unknown bind key", func(t *testing.T) {
		_, err := entry.Bind(map[string]any{"nope": 1})
		unexpected := testutil.RequireErrorAs[*UnexpectedArgumentError](t, err)
		if !slices.Equal(unexpected.Unexpected, []string{"nope"}) {
			t.Errorf("Unexpected = %v", unexpected.Unexpected)
		}
	})

	t.Run("lookup suggestion", func(t *testing.T) {
		_, err := entry.Lookup("g", "cc")
		lookup := testutil.RequireErrorAs[*LookupError](t, err)
		if lookup.Suggestion != "c" || !slices.Equal(lookup.Path, []string{"sky", "g"}) {
			t.Errorf("LookupError = %+v", lookup)
		}
	})

	t.Run("lookup through a command", func(t *testing.T) {
		_, err := entry.Lookup("c2", "x")
		testutil.RequireErrorAs[*LookupError](t, err)
	})

	t.Run("missing required", func(t *testing.T) {
		ref, err := entry.Lookup("g", "c")
		if err != nil {
			t.Fatal(err)
		}
		_, err = ref.Command.Call(context.Background(), nil)
		missing := testutil.RequireErrorAs[*MissingArgumentError](t, err)
		if !slices.Equal(missing.Missing, []string{"x"}) {
			t.Errorf("Missing = %v", missing.Missing)
		}
	})

	t.Run("unknown call key is rejected", func(t *testing.T) {
		ref, err := entry.Lookup("g", "c")
		if err != nil {
			t.Fatal(err)
		}
		_, err = ref.Command.Call(context.Background(), map[string]any{"x": "1", "w": "2"})
		testutil.RequireErrorAs[*UnexpectedArgumentError](t, err)
	})

	t.Run("wrong value type", func(t *testing.T) {
		ref, err := entry.Lookup("g", "sub", "deep")
		if err != nil {
			t.Fatal(err)
		}
		_, err = ref.Command.Call(context.Background(), map[string]any{"name": "n", "count": "three"})
		testutil.RequireErrorAs[*InvalidValueError](t, err)
	})
}

func TestBinderIgnoreUnknownPolicy(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), func(options *LoaderOptions) {
		options.UnknownArguments = IgnoreUnknown
	}, nil)
	ref, err := f.cli.EntryPoint().Lookup("g", "c")
	if err != nil {
		t.Fatal(err)
	}
	value, err := ref.Command.Call(context.Background(), map[string]any{"x": "1", "w": "2"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resultOf(t, value).Args.Has("w") {
		t.Error("ignored key reached the command")
	}

	// The command line still goes through the same leaf bind.
	if _, err := f.cli.Execute(context.Background(), []string{"g", "c", "--x=1", "--gflag=on"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestBinderIndependentBinds(t *testing.T) {
	f := newFixture(t, fixtureRegistry(t, nil), nil, nil)
	entry := f.cli.EntryPoint()
	first, err := entry.Bind(map[string]any{"project": "one"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := entry.Bind(map[string]any{"project": "two"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Args().String("project") != "one" || second.Args().String("project") != "two" {
		t.Errorf("binds share state: %v, %v", first.Args().Map(), second.Args().Map())
	}
	if first.EntryPoint().Node() != f.cli.Root() {
		t.Error("EntryPoint does not return the root")
	}
}
