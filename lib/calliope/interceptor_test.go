// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/calliope/lib/testutil"
)

func TestAddArgumentDestDerivation(t *testing.T) {
	parser := newArgumentInterceptor([]string{"sky", "c"}, true)
	declarations := []struct {
		name    string
		options ArgOptions
	}{
		{"--zone", ArgOptions{}},
		{"--dry-run", ArgOptions{Kind: ValueBool}},
		{"--format", ArgOptions{Dest: "output_format"}},
		{"instance_name", ArgOptions{}},
	}
	for _, declaration := range declarations {
		if err := parser.AddArgument(declaration.name, declaration.options); err != nil {
			t.Fatalf("AddArgument(%q): %v", declaration.name, err)
		}
	}

	want := []string{"zone", "dry_run", "output_format", "instance_name"}
	if got := parser.Dests(); !slices.Equal(got, want) {
		t.Errorf("Dests() = %v, want %v", got, want)
	}
	if got := len(parser.Positionals()); got != 1 {
		t.Errorf("Positionals() has %d entries, want 1", got)
	}
	if got := len(parser.Flags()); got != 3 {
		t.Errorf("Flags() has %d entries, want 3", got)
	}
	if parser.FlagSet().Lookup("dry-run") == nil {
		t.Error("--dry-run not registered with the help flag set")
	}
}

func TestAddArgumentErrors(t *testing.T) {
	tests := []struct {
		name            string
		allowPositional bool
		setup           []string
		argument        string
		options         ArgOptions
		message         string
	}{
		{name: "positional on group", argument: "name", message: "groups cannot have positional"},
		{name: "dash in positional", allowPositional: true, argument: "instance-name", message: "cannot contain a '-'"},
		{name: "duplicate dest", allowPositional: true, setup: []string{"--zone"}, argument: "zone", message: "already declared"},
		{name: "duplicate flag", setup: []string{"--zone"}, argument: "--zone", options: ArgOptions{Dest: "other"}, message: "already declared"},
		{name: "reserved help", argument: "--help", message: "reserved"},
		{name: "reserved shorthand", argument: "--host", options: ArgOptions{Short: "h"}, message: "reserved"},
		{name: "long shorthand", argument: "--zone", options: ArgOptions{Short: "zz"}, message: "more than one character"},
		{name: "bad default", argument: "--count", options: ArgOptions{Kind: ValueInt, Default: "three"}, message: "does not match"},
		{name: "default outside choices", argument: "--format", options: ArgOptions{Default: "xml", Choices: []string{"json"}}, message: "choices"},
		{name: "nargs on flag", argument: "--files", options: ArgOptions{Nargs: "*"}, message: "positional arguments only"},
		{name: "bad nargs", allowPositional: true, argument: "files", options: ArgOptions{Nargs: "2"}, message: "unsupported nargs"},
		{name: "positional after variadic", allowPositional: true, setup: []string{"@files"}, argument: "last", message: "follows variadic"},
		{name: "empty name", argument: "--", message: "empty"},
		{name: "bounds on a string", argument: "--zone", options: ArgOptions{Min: 1}, message: "min and max apply to int, float, duration, and size values"},
		{name: "bound of another type", argument: "--count", options: ArgOptions{Kind: ValueInt, Min: 1.5}, message: "does not match kind int"},
		{name: "min above max", argument: "--count", options: ArgOptions{Kind: ValueInt, Min: 5, Max: 1}, message: "min 5 is greater than max 1"},
		{name: "item bounds on an int", argument: "--count", options: ArgOptions{Kind: ValueInt, MaxItems: 2}, message: "item counts apply"},
		{name: "inverted item bounds", argument: "--tags", options: ArgOptions{Kind: ValueStringSlice, MinItems: 3, MaxItems: 1}, message: "invalid item bounds"},
		{name: "default below min", argument: "--count", options: ArgOptions{Kind: ValueInt, Default: 0, Min: 1}, message: "default must be at least 1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			parser := newArgumentInterceptor([]string{"sky", "node"}, test.allowPositional)
			for _, name := range test.setup {
				options := ArgOptions{}
				if strings.HasPrefix(name, "@") {
					name = strings.TrimPrefix(name, "@")
					options.Nargs = "*"
				}
				if err := parser.AddArgument(name, options); err != nil {
					t.Fatalf("setup AddArgument(%q): %v", name, err)
				}
			}
			err := parser.AddArgument(test.argument, test.options)
			var argumentError *ArgumentError
			if !errors.As(err, &argumentError) {
				t.Fatalf("AddArgument(%q) = %v, want *ArgumentError", test.argument, err)
			}
			if !strings.Contains(argumentError.Error(), test.message) {
				t.Errorf("error %q does not contain %q", argumentError.Error(), test.message)
			}
			if !IsToolError(err) {
				t.Error("ArgumentError is not a tool error")
			}
		})
	}
}

func TestRequiredPositionals(t *testing.T) {
	parser := newArgumentInterceptor([]string{"sky", "c"}, true)
	for _, declaration := range []struct {
		name  string
		nargs string
	}{{"plain", ""}, {"optional", "?"}, {"many", "+"}} {
		if err := parser.AddArgument(declaration.name, ArgOptions{Nargs: declaration.nargs}); err != nil {
			t.Fatalf("AddArgument(%q): %v", declaration.name, err)
		}
	}
	want := []string{"plain", "many"}
	if got := parser.Required(); !slices.Equal(got, want) {
		t.Errorf("Required() = %v, want %v", got, want)
	}
}

func TestDefaultsIncludeNil(t *testing.T) {
	parser := newArgumentInterceptor([]string{"sky"}, false)
	if err := parser.AddArgument("--timeout", ArgOptions{Kind: ValueDuration, Default: 5 * time.Second}); err != nil {
		t.Fatal(err)
	}
	if err := parser.AddArgument("--label", ArgOptions{}); err != nil {
		t.Fatal(err)
	}
	defaults := parser.Defaults()
	if defaults["timeout"] != 5*time.Second {
		t.Errorf("defaults[timeout] = %v", defaults["timeout"])
	}
	value, ok := defaults["label"]
	if !ok || value != nil {
		t.Errorf("defaults[label] = %v, %v; want present nil", value, ok)
	}

	defaults["timeout"] = time.Hour
	if parser.Defaults()["timeout"] != 5*time.Second {
		t.Error("Defaults() returned the internal map")
	}
}

func TestValidateArgs(t *testing.T) {
	parser := newArgumentInterceptor([]string{"a", "b"}, true)
	for _, name := range []string{"--x", "--y", "--w"} {
		if err := parser.AddArgument(name, ArgOptions{Required: name != "--w"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := parser.AddArgument("--mode", ArgOptions{Choices: []string{"fast", "slow"}}); err != nil {
		t.Fatal(err)
	}

	t.Run("missing", func(t *testing.T) {
		err := parser.ValidateArgs(map[string]any{"w": "1"})
		var missing *MissingArgumentError
		if !errors.As(err, &missing) {
			t.Fatalf("ValidateArgs = %v, want *MissingArgumentError", err)
		}
		if !slices.Equal(missing.Missing, []string{"x", "y"}) {
			t.Errorf("Missing = %v, want [x y]", missing.Missing)
		}
		want := "The following required arguments were not provided for command [a.b]: [x, y]"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("unexpected", func(t *testing.T) {
		err := parser.ValidateArgs(map[string]any{"x": "1", "y": "2", "zz": 3, "aa": 4})
		var unexpected *UnexpectedArgumentError
		if !errors.As(err, &unexpected) {
			t.Fatalf("ValidateArgs = %v, want *UnexpectedArgumentError", err)
		}
		want := "The following arguments were unexpected for command [a.b]: [aa, zz]"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("choices", func(t *testing.T) {
		err := parser.ValidateArgs(map[string]any{"x": "1", "y": "2", "mode": "medium"})
		var invalid *InvalidValueError
		if !errors.As(err, &invalid) {
			t.Fatalf("ValidateArgs = %v, want *InvalidValueError", err)
		}
		if invalid.Dest != "mode" || invalid.Value != "medium" {
			t.Errorf("InvalidValueError = %+v", invalid)
		}
	})

	t.Run("valid", func(t *testing.T) {
		if err := parser.ValidateArgs(map[string]any{"x": "1", "y": "2", "mode": "fast"}); err != nil {
			t.Errorf("ValidateArgs: %v", err)
		}
	})
}

func TestArgumentConvert(t *testing.T) {
	tests := []struct {
		kind    ValueKind
		word    string
		want    any
		wantErr bool
	}{
		{ValueString, "abc", "abc", false},
		{ValueInt, "42", 42, false},
		{ValueInt, "forty", nil, true},
		{ValueBool, "true", true, false},
		{ValueFloat, "2.5", 2.5, false},
		{ValueDuration, "90s", 90 * time.Second, false},
		{ValueBinarySize, "10GB", int64(10 << 30), false},
		{ValueBinarySize, "512MiB", int64(512 << 20), false},
		{ValueBinarySize, "2", int64(2 << 30), false},
		{ValueBinarySize, "lots", nil, true},
	}
	for _, test := range tests {
		argument := &Argument{Name: "value", Dest: "value", Kind: test.kind, Positional: true}
		got, err := argument.convert(test.word)
		if test.wantErr {
			if err == nil {
				t.Errorf("convert(%s, %q) = %v, want error", test.kind, test.word, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("convert(%s, %q): %v", test.kind, test.word, err)
			continue
		}
		if got != test.want {
			t.Errorf("convert(%s, %q) = %v, want %v", test.kind, test.word, got, test.want)
		}
	}
}

func TestDisplayMetavar(t *testing.T) {
	plain := &Argument{Dest: "instance_name"}
	if got := plain.DisplayMetavar(); got != "INSTANCE-NAME" {
		t.Errorf("DisplayMetavar() = %q, want INSTANCE-NAME", got)
	}
	custom := &Argument{Dest: "zone", Metavar: "ZONE_ID"}
	if got := custom.DisplayMetavar(); got != "ZONE_ID" {
		t.Errorf("DisplayMetavar() = %q, want ZONE_ID", got)
	}
}

func TestConvertStringMap(t *testing.T) {
	argument := &Argument{Name: "labels", Dest: "labels", Kind: ValueStringMap, Positional: true}
	got, err := argument.convert("env=prod,team=infra")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := map[string]string{"env": "prod", "team": "infra"}
	if labels, ok := got.(map[string]string); !ok || !maps.Equal(labels, want) {
		t.Errorf("convert = %v, want %v", got, want)
	}
	if _, err := argument.convert("env"); err == nil {
		t.Error("convert accepted a pair without a value")
	}
}

func TestValidateArgsBounds(t *testing.T) {
	parser := newArgumentInterceptor([]string{"sky", "c"}, true)
	for name, options := range map[string]ArgOptions{
		"--count":   {Kind: ValueInt, Min: 1, Max: 10},
		"--ratio":   {Kind: ValueFloat, Max: 1.0},
		"--timeout": {Kind: ValueDuration, Min: time.Second},
		"--size":    {Kind: ValueBinarySize, Max: int64(1 << 30)},
		"--tags":    {Kind: ValueStringSlice, MinItems: 1, MaxItems: 2},
		"--labels":  {Kind: ValueStringMap, MaxItems: 1},
	} {
		if err := parser.AddArgument(name, options); err != nil {
			t.Fatalf("AddArgument(%s): %v", name, err)
		}
	}

	tests := []struct {
		name     string
		supplied map[string]any
		reason   string
	}{
		{"in range", map[string]any{"count": 10, "ratio": 0.5, "timeout": time.Minute, "size": int64(1 << 30)}, ""},
		{"below min", map[string]any{"count": 0}, "must be at least 1"},
		{"above max", map[string]any{"count": 11}, "must be at most 10"},
		{"float above max", map[string]any{"ratio": 1.5}, "must be at most 1"},
		{"short duration", map[string]any{"timeout": time.Millisecond}, "must be at least 1s"},
		{"large size", map[string]any{"size": int64(2 << 30)}, "must be at most 1GiB"},
		{"too few items", map[string]any{"tags": []string{}}, "needs at least 1 item(s), got 0"},
		{"too many items", map[string]any{"tags": []string{"a", "b", "c"}}, "allows at most 2 item(s), got 3"},
		{"too many pairs", map[string]any{"labels": map[string]string{"a": "1", "b": "2"}}, "allows at most 1 item(s), got 2"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := parser.ValidateArgs(test.supplied)
			if test.reason == "" {
				if err != nil {
					t.Errorf("ValidateArgs: %v", err)
				}
				return
			}
			invalid := testutil.RequireErrorAs[*InvalidValueError](t, err)
			if invalid.Reason != test.reason {
				t.Errorf("Reason = %q, want %q", invalid.Reason, test.reason)
			}
		})
	}
}

func TestBoundsHelp(t *testing.T) {
	tests := []struct {
		argument Argument
		want     string
	}{
		{Argument{Kind: ValueInt, Min: 1, Max: 100}, "between 1 and 100"},
		{Argument{Kind: ValueInt, Min: 0}, "at least 0"},
		{Argument{Kind: ValueDuration, Max: time.Hour}, "at most 1h0m0s"},
		{Argument{Kind: ValueBinarySize, Min: int64(10 << 30), Max: int64(64 << 40)}, "between 10GiB and 64TiB"},
		{Argument{Kind: ValueInt}, ""},
	}
	for _, test := range tests {
		if got := test.argument.BoundsHelp(); got != test.want {
			t.Errorf("BoundsHelp(%+v) = %q, want %q", test.argument, got, test.want)
		}
	}
}

func TestTypedFlagsOnTheCommandLine(t *testing.T) {
	registry := fixtureRegistry(t, nil)
	registry.MustRegister("sky.typed", CommandModule{
		Args: func(parser *ArgumentInterceptor) error {
			if err := parser.AddArgument("--labels", ArgOptions{Kind: ValueStringMap, MaxItems: 2}); err != nil {
				return err
			}
			if err := parser.AddArgument("--disk", ArgOptions{Kind: ValueBinarySize, Min: int64(1 << 30)}); err != nil {
				return err
			}
			return parser.AddArgument("--count", ArgOptions{Kind: ValueInt, Default: 1, Min: 1, Max: 3})
		},
		Run: echoRun(nil),
	})
	f := newFixture(t, registry, nil, nil)

	value, err := f.cli.Execute(context.Background(), []string{"typed", "--labels=env=prod,team=infra", "--disk", "10GB"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	args := resultOf(t, value).Args
	if got := args.StringMap("labels"); !maps.Equal(got, map[string]string{"env": "prod", "team": "infra"}) {
		t.Errorf("labels = %v", got)
	}
	if got := args.Size("disk"); got != 10<<30 {
		t.Errorf("disk = %d, want %d", got, int64(10<<30))
	}
	if got := args.Int("count"); got != 1 {
		t.Errorf("count = %d, want the default 1", got)
	}

	failures := []struct {
		name   string
		argv   []string
		dest   string
		reason string
	}{
		{"count above max", []string{"typed", "--count=4"}, "count", "must be at most 3"},
		{"small disk", []string{"typed", "--disk=512MB"}, "disk", "must be at least 1GiB"},
		{"too many labels", []string{"typed", "--labels=a=1,b=2,c=3"}, "labels", "allows at most 2 item(s), got 3"},
	}
	for _, test := range failures {
		t.Run(test.name, func(t *testing.T) {
			_, err := f.cli.Execute(context.Background(), test.argv)
			invalid := testutil.RequireErrorAs[*InvalidValueError](t, err)
			if invalid.Dest != test.dest || invalid.Reason != test.reason {
				t.Errorf("InvalidValueError = %+v", invalid)
			}
		})
	}

	_, err = f.cli.Execute(context.Background(), []string{"typed", "--disk=huge"})
	if err == nil || !strings.Contains(err.Error(), `invalid size "huge"`) {
		t.Errorf("Execute with an unparsable size = %v", err)
	}
}
