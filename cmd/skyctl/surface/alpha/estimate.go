// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package alpha holds commands that only exist in the alpha track.
package alpha

import (
	"fmt"

	units "github.com/docker/go-units"

	"github.com/bureau-foundation/calliope/cmd/skyctl/surface/compute"
	"github.com/bureau-foundation/calliope/lib/calliope"
)

// Estimate is the result of the estimate command.
type Estimate struct {
	MachineType compute.MachineType
	Count       int
	Hours       int
	DiskBytes   int64
	TotalUSD    float64
}

// diskMonthlyUSD is the price of one GiB of disk for a 730 hour month.
const diskMonthlyUSD = 0.04

// Register adds the estimate command at modulePath.
func Register(registry *calliope.Registry, modulePath string) {
	registry.MustRegister(modulePath, calliope.CommandModule{
		Help: `Estimate the cost of running instances.

            Multiplies the hourly price of the machine type by the
            instance count and the number of hours.`,
		Examples: []calliope.Example{
			{Description: "Price three instances for a month", Command: "skyctl alpha estimate e2-small --count=3"},
		},
		Args: func(parser *calliope.ArgumentInterceptor) error {
			if err := parser.AddArgument("machine_type", calliope.ArgOptions{
				Choices: compute.MachineTypeNames(),
				Help:    "Machine type to price.",
			}); err != nil {
				return err
			}
			if err := parser.AddArgument("--count", calliope.ArgOptions{
				Kind:    calliope.ValueInt,
				Default: 1,
				Min:     1,
				Help:    "Number of instances.",
			}); err != nil {
				return err
			}
			if err := parser.AddArgument("--hours", calliope.ArgOptions{
				Kind:    calliope.ValueInt,
				Default: 730,
				Min:     1,
				Help:    "Hours of uptime per instance.",
			}); err != nil {
				return err
			}
			return parser.AddArgument("--disk-size", calliope.ArgOptions{
				Kind:    calliope.ValueBinarySize,
				Metavar: "SIZE",
				Min:     int64(10 << 30),
				Max:     int64(64 << 40),
				Help:    "Persistent disk attached to each instance, such as 100GB. A bare number is in GB.",
			})
		},
		Run: func(execution *calliope.Execution) (any, error) {
			machine := compute.MachineTypes[execution.Args.String("machine_type")]
			count, hours := execution.Args.Int("count"), execution.Args.Int("hours")
			disk := execution.Args.Size("disk_size")
			total := machine.HourlyUSD * float64(count) * float64(hours)
			total += diskMonthlyUSD * float64(disk) / (1 << 30) * float64(count) * float64(hours) / 730
			return Estimate{
				MachineType: machine,
				Count:       count,
				Hours:       hours,
				DiskBytes:   disk,
				TotalUSD:    total,
			}, nil
		},
		Display: func(execution *calliope.Execution, result any) error {
			estimate := result.(Estimate)
			shape := estimate.MachineType.Name
			if estimate.DiskBytes > 0 {
				shape += " with " + units.BytesSize(float64(estimate.DiskBytes)) + " disk"
			}
			_, err := fmt.Fprintf(execution.Stdout, "%d x %s for %d hours: $%.2f\n",
				estimate.Count, shape, estimate.Hours, estimate.TotalUSD)
			return err
		},
	})
}
