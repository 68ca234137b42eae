// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compute is the "compute" command group of skyctl: a read-only
// view over a fixed instance inventory.
package compute

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bureau-foundation/calliope/lib/calliope"
)

// ZoneProperty is the config property holding the default zone.
const ZoneProperty = "compute.zone"

// Register adds the compute group under modulePath.
func Register(registry *calliope.Registry, modulePath string) {
	registry.MustRegister(modulePath, calliope.GroupModule{
		Help: `Manage compute resources.

            Commands in this group read the instance inventory of the
            current project. The zone defaults to the compute.zone
            property and can be overridden with --zone.`,
		Args: func(parser *calliope.ArgumentInterceptor) error {
			return parser.AddArgument("--zone", calliope.ArgOptions{
				Metavar: "ZONE",
				Help:    "Zone to operate in. Overrides the compute.zone property.",
			})
		},
		Filter: zoneFilter,
	})
	registry.MustRegister(modulePath+".instances", calliope.GroupModule{
		Help: "Read virtual machine instances.",
	})
	registry.MustRegister(modulePath+".instances.list", calliope.CommandModule{
		Help: `List instances.

            Lists the instances of the current project, in the current
            zone when one is set.`,
		Examples: []calliope.Example{
			{Description: "List running instances as JSON", Command: "skyctl compute instances list --status=RUNNING --format=json"},
		},
		Args:    listArgs,
		Run:     runList,
		Display: displayList,
	})
	registry.MustRegister(modulePath+".instances.describe", calliope.CommandModule{
		Help: "Describe one instance.",
		Args: func(parser *calliope.ArgumentInterceptor) error {
			if err := parser.AddArgument("name", calliope.ArgOptions{Help: "Name of the instance."}); err != nil {
				return err
			}
			return addFormat(parser)
		},
		Run:     runDescribe,
		Display: displayDescribe,
	})
	registry.MustRegister(modulePath+".machine_types", calliope.CommandModule{
		Help:          "List machine types and their hourly prices.",
		ReleaseTracks: []calliope.ReleaseTrack{calliope.Beta, calliope.Alpha},
		Args:          addFormat,
		Run: func(execution *calliope.Execution) (any, error) {
			machines := make([]MachineType, 0, len(MachineTypes))
			for _, name := range MachineTypeNames() {
				machines = append(machines, MachineTypes[name])
			}
			return machines, nil
		},
		Display: displayMachineTypes,
	})
}

// zoneFilter puts the effective zone into the tool context.
func zoneFilter(toolContext calliope.ToolContext, config calliope.Config, args calliope.Args) error {
	if zone := args.String("zone"); zone != "" {
		toolContext["zone"] = zone
		return nil
	}
	if zone, ok := config[ZoneProperty].(string); ok && zone != "" {
		toolContext["zone"] = zone
	}
	return nil
}

func addFormat(parser *calliope.ArgumentInterceptor) error {
	return parser.AddArgument("--format", calliope.ArgOptions{
		Default: "table",
		Choices: []string{"table", "json"},
		Help:    "Output format.",
	})
}

func listArgs(parser *calliope.ArgumentInterceptor) error {
	if err := parser.AddArgument("--status", calliope.ArgOptions{
		Choices: []string{"RUNNING", "STOPPED"},
		Help:    "Only list instances in this state.",
	}); err != nil {
		return err
	}
	if err := parser.AddArgument("--labels", calliope.ArgOptions{
		Kind:     calliope.ValueStringMap,
		Metavar:  "KEY=VALUE",
		MaxItems: 4,
		Help:     "Only list instances carrying all of these labels.",
	}); err != nil {
		return err
	}
	if err := parser.AddArgument("--limit", calliope.ArgOptions{
		Kind:    calliope.ValueInt,
		Default: 0,
		Min:     0,
		Help:    "Maximum number of instances to list. Zero lists all.",
	}); err != nil {
		return err
	}
	return addFormat(parser)
}

func currentProject(execution *calliope.Execution) (string, error) {
	project, _ := execution.ToolContext["project"].(string)
	if project == "" {
		return "", calliope.Validation("no project is set").
			WithHint("Pass --project or run `skyctl config set project NAME`.")
	}
	return project, nil
}

func runList(execution *calliope.Execution) (any, error) {
	project, err := currentProject(execution)
	if err != nil {
		return nil, err
	}
	zone, _ := execution.ToolContext["zone"].(string)
	instances := query{
		project: project,
		zone:    zone,
		status:  execution.Args.String("status"),
		labels:  execution.Args.StringMap("labels"),
		limit:   execution.Args.Int("limit"),
	}.run()
	execution.Logger.Debug("listed instances", "project", project, "zone", zone, "count", len(instances))
	return instances, nil
}

func runDescribe(execution *calliope.Execution) (any, error) {
	project, err := currentProject(execution)
	if err != nil {
		return nil, err
	}
	name := execution.Args.String("name")
	for _, instance := range (query{project: project}).run() {
		if instance.Name == name {
			return instance, nil
		}
	}
	return nil, calliope.NotFound("instance %q not found in project %q", name, project)
}

func displayList(execution *calliope.Execution, result any) error {
	instances := result.([]Instance)
	if execution.Args.String("format") == "json" {
		return writeJSON(execution.Stdout, instances)
	}
	if len(instances) == 0 {
		_, err := fmt.Fprintln(execution.Stderr, "Listed 0 items.")
		return err
	}
	writer := tabwriter.NewWriter(execution.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tZONE\tMACHINE_TYPE\tSTATUS")
	for _, instance := range instances {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", instance.Name, instance.Zone, instance.MachineType, instance.Status)
	}
	return writer.Flush()
}

func displayDescribe(execution *calliope.Execution, result any) error {
	instance := result.(Instance)
	if execution.Args.String("format") == "json" {
		return writeJSON(execution.Stdout, instance)
	}
	machine := MachineTypes[instance.MachineType]
	writer := tabwriter.NewWriter(execution.Stdout, 0, 0, 1, ' ', 0)
	fmt.Fprintf(writer, "name:\t%s\n", instance.Name)
	fmt.Fprintf(writer, "project:\t%s\n", instance.Project)
	fmt.Fprintf(writer, "zone:\t%s\n", instance.Zone)
	fmt.Fprintf(writer, "machineType:\t%s (%d vCPU, %d GB)\n", instance.MachineType, machine.CPUs, machine.MemoryGB)
	fmt.Fprintf(writer, "status:\t%s\n", instance.Status)
	return writer.Flush()
}

func displayMachineTypes(execution *calliope.Execution, result any) error {
	machines := result.([]MachineType)
	if execution.Args.String("format") == "json" {
		return writeJSON(execution.Stdout, machines)
	}
	writer := tabwriter.NewWriter(execution.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tCPUS\tMEMORY_GB\tHOURLY_USD")
	for _, machine := range machines {
		fmt.Fprintf(writer, "%s\t%d\t%d\t%.4f\n", machine.Name, machine.CPUs, machine.MemoryGB, machine.HourlyUSD)
	}
	return writer.Flush()
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
