// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package surface assembles the skyctl command tree: it registers every
// command module and loads them in the layout of manifest.yaml.
package surface

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/bureau-foundation/calliope/cmd/skyctl/surface/alpha"
	"github.com/bureau-foundation/calliope/cmd/skyctl/surface/compute"
	"github.com/bureau-foundation/calliope/cmd/skyctl/surface/config"
	"github.com/bureau-foundation/calliope/cmd/skyctl/surface/meta"
	"github.com/bureau-foundation/calliope/lib/calliope"
	"github.com/bureau-foundation/calliope/lib/helpdoc"
	"github.com/bureau-foundation/calliope/lib/version"
)

//go:embed manifest.yaml
var manifest []byte

// Options configures New.
type Options struct {
	// ConfigFile is the persisted properties file. Empty disables
	// persistence.
	ConfigFile string

	// LogsDir receives the per-process debug log. Empty disables it.
	LogsDir string

	Stdout io.Writer
	Stderr io.Writer
}

// Registry returns the registry holding every skyctl module.
func Registry() *calliope.Registry {
	registry := calliope.NewRegistry()
	registry.MustRegister("skyctl", calliope.GroupModule{
		Help: `Manage a small fleet of virtual machines.

            skyctl lists and describes instances, keeps default
            properties such as the project, and can export its own
            command tree and reference documents.`,
		Args: func(parser *calliope.ArgumentInterceptor) error {
			return parser.AddArgument("--project", calliope.ArgOptions{
				Metavar: "PROJECT",
				Help:    "Project to use for this command. Overrides the project property.",
			})
		},
		Filter: projectFilter,
	})
	compute.Register(registry, "skyctl.compute")
	config.Register(registry, "skyctl.config")
	meta.Register(registry, "skyctl_meta")

	registry.MustRegister("skyctl_beta", calliope.GroupModule{
		Help: "Beta versions of skyctl commands.",
	})
	registry.MustRegister("skyctl_alpha", calliope.GroupModule{
		Help: "Alpha versions of skyctl commands.",
	})
	alpha.Register(registry, "skyctl_alpha.estimate")
	return registry
}

// New generates the skyctl CLI.
func New(options Options) (*calliope.CLI, error) {
	layout, err := calliope.LoadManifest(bytes.NewReader(manifest))
	if err != nil {
		return nil, fmt.Errorf("loading embedded manifest: %w", err)
	}
	loader, err := layout.NewLoader(calliope.LoaderOptions{
		Registry:    Registry(),
		LoadContext: loadContext,
		ConfigFile:  options.ConfigFile,
		LogsDir:     options.LogsDir,
		VersionFunc: version.Info,
		HelpFunc:    renderHelp,
		KnownErrors: []func(error) bool{isPermissionError},
		Stdout:      options.Stdout,
		Stderr:      options.Stderr,
	})
	if err != nil {
		return nil, err
	}
	if err := loader.RegisterPreRunHook(alphaWarning(options.Stderr), `skyctl\.alpha\.`, ""); err != nil {
		return nil, err
	}
	return loader.Generate()
}

// loadContext seeds the tool context from the persisted properties.
func loadContext(properties calliope.Config) (calliope.ToolContext, error) {
	toolContext := calliope.ToolContext{}
	if project, ok := properties[config.ProjectProperty].(string); ok {
		toolContext["project"] = project
	}
	return toolContext, nil
}

func projectFilter(toolContext calliope.ToolContext, _ calliope.Config, args calliope.Args) error {
	if project := args.String("project"); project != "" {
		toolContext["project"] = project
	}
	return nil
}

func alphaWarning(stderr io.Writer) calliope.HookFunc {
	return func(commandPath string) error {
		_, err := fmt.Fprintf(stderr, "WARNING: %s\n", calliope.Alpha.Notice)
		return err
	}
}

// renderHelp writes --help as a styled reference document.
func renderHelp(w io.Writer, node calliope.Node, commandPath []string) error {
	document := helpdoc.Markdown(node, commandPath, helpdoc.Options{})
	_, err := io.WriteString(w, helpdoc.RenderTerminal(document, helpdoc.TerminalOptions{
		Width:   helpdoc.TerminalWidth(w),
		Profile: helpdoc.ProfileFor(w),
	}))
	return err
}

func isPermissionError(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
