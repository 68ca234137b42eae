// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config is the "config" command group of skyctl. Its commands
// read and change the persisted properties through the execution's
// config map, which the engine saves after a successful run.
package config

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/bureau-foundation/calliope/cmd/skyctl/surface/compute"
	"github.com/bureau-foundation/calliope/lib/calliope"
)

// ProjectProperty is the config property holding the default project.
const ProjectProperty = "project"

// Properties lists the settable properties and their descriptions.
var Properties = map[string]string{
	ProjectProperty:      "Default project for every command.",
	compute.ZoneProperty: "Default zone for compute commands.",
}

// Register adds the config group under modulePath.
func Register(registry *calliope.Registry, modulePath string) {
	registry.MustRegister(modulePath, calliope.GroupModule{
		Help: `View and edit skyctl properties.

            Properties are stored in the skyctl config file and supply
            defaults for flags such as --project and --zone.`,
	})
	registry.MustRegister(modulePath+".get", calliope.CommandModule{
		Help: "Print the value of a property.",
		Args: func(parser *calliope.ArgumentInterceptor) error {
			return parser.AddArgument("property", calliope.ArgOptions{Help: "Property to print."})
		},
		Run:     runGet,
		Display: printLine,
	})
	registry.MustRegister(modulePath+".set", calliope.CommandModule{
		Help: "Set a property.",
		Examples: []calliope.Example{
			{Description: "Make demo the default project", Command: "skyctl config set project demo"},
		},
		Args: func(parser *calliope.ArgumentInterceptor) error {
			if err := parser.AddArgument("property", calliope.ArgOptions{Help: "Property to set."}); err != nil {
				return err
			}
			return parser.AddArgument("value", calliope.ArgOptions{Help: "New value."})
		},
		Run:     runSet,
		Display: printLine,
	})
	registry.MustRegister(modulePath+".unset", calliope.CommandModule{
		Help: "Remove a property.",
		Args: func(parser *calliope.ArgumentInterceptor) error {
			return parser.AddArgument("property", calliope.ArgOptions{Help: "Property to remove."})
		},
		Run:     runUnset,
		Display: printLine,
	})
	registry.MustRegister(modulePath+".list", calliope.CommandModule{
		Help: "List the properties that are set.",
		Args: func(parser *calliope.ArgumentInterceptor) error {
			return parser.AddArgument("--all", calliope.ArgOptions{
				Kind: calliope.ValueBool,
				Help: "Include properties that are not set.",
			})
		},
		Run:     runList,
		Display: displayList,
	})
}

func checkProperty(name string) error {
	if _, ok := Properties[name]; ok {
		return nil
	}
	names := make([]string, 0, len(Properties))
	for known := range Properties {
		names = append(names, known)
	}
	slices.Sort(names)
	return calliope.Validation("unknown property %q", name).
		WithHint("Known properties: %s.", strings.Join(names, ", "))
}

func runGet(execution *calliope.Execution) (any, error) {
	name := execution.Args.String("property")
	if err := checkProperty(name); err != nil {
		return nil, err
	}
	value, ok := execution.Config[name]
	if !ok {
		return nil, calliope.NotFound("property %q is not set", name)
	}
	return fmt.Sprint(value), nil
}

func runSet(execution *calliope.Execution) (any, error) {
	name, value := execution.Args.String("property"), execution.Args.String("value")
	if err := checkProperty(name); err != nil {
		return nil, err
	}
	if execution.Config == nil {
		return nil, calliope.Internal("no config file is configured")
	}
	execution.Config[name] = value
	execution.Logger.Debug("property set", "property", name, "value", value)
	return fmt.Sprintf("Updated property [%s].", name), nil
}

func runUnset(execution *calliope.Execution) (any, error) {
	name := execution.Args.String("property")
	if err := checkProperty(name); err != nil {
		return nil, err
	}
	delete(execution.Config, name)
	return fmt.Sprintf("Unset property [%s].", name), nil
}

type property struct {
	name  string
	value any
}

func runList(execution *calliope.Execution) (any, error) {
	var properties []property
	for name := range Properties {
		value, ok := execution.Config[name]
		if !ok && !execution.Args.Bool("all") {
			continue
		}
		properties = append(properties, property{name: name, value: value})
	}
	slices.SortFunc(properties, func(a, b property) int { return strings.Compare(a.name, b.name) })
	return properties, nil
}

func displayList(execution *calliope.Execution, result any) error {
	writer := tabwriter.NewWriter(execution.Stdout, 0, 0, 1, ' ', 0)
	for _, entry := range result.([]property) {
		value := "(unset)"
		if entry.value != nil {
			value = fmt.Sprint(entry.value)
		}
		fmt.Fprintf(writer, "%s\t= %s\n", entry.name, value)
	}
	return writer.Flush()
}

func printLine(execution *calliope.Execution, result any) error {
	_, err := fmt.Fprintln(execution.Stdout, result)
	return err
}
