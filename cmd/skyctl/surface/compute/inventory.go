// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compute

import (
	"cmp"
	"slices"
)

// Instance is one virtual machine in the demo inventory.
type Instance struct {
	Name        string            `json:"name"`
	Project     string            `json:"project"`
	Zone        string            `json:"zone"`
	MachineType string            `json:"machine_type"`
	Status      string            `json:"status"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// MachineType describes a machine shape and its hourly price.
type MachineType struct {
	Name      string  `json:"name"`
	CPUs      int     `json:"cpus"`
	MemoryGB  int     `json:"memory_gb"`
	HourlyUSD float64 `json:"hourly_usd"`
}

// MachineTypes is the catalog of machine shapes, keyed by name.
var MachineTypes = map[string]MachineType{
	"e2-small":      {Name: "e2-small", CPUs: 2, MemoryGB: 2, HourlyUSD: 0.0168},
	"e2-standard-4": {Name: "e2-standard-4", CPUs: 4, MemoryGB: 16, HourlyUSD: 0.134},
	"n2-standard-8": {Name: "n2-standard-8", CPUs: 8, MemoryGB: 32, HourlyUSD: 0.3885},
	"n2-highmem-16": {Name: "n2-highmem-16", CPUs: 16, MemoryGB: 128, HourlyUSD: 1.0483},
}

// MachineTypeNames returns the catalog names, sorted.
func MachineTypeNames() []string {
	names := make([]string, 0, len(MachineTypes))
	for name := range MachineTypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var inventory = []Instance{
	{Name: "web-1", Project: "demo", Zone: "us-east1-b", MachineType: "e2-small", Status: "RUNNING", Labels: map[string]string{"role": "web", "env": "prod"}},
	{Name: "web-2", Project: "demo", Zone: "us-east1-b", MachineType: "e2-small", Status: "STOPPED", Labels: map[string]string{"role": "web", "env": "staging"}},
	{Name: "db-1", Project: "demo", Zone: "us-east1-c", MachineType: "n2-highmem-16", Status: "RUNNING", Labels: map[string]string{"role": "db", "env": "prod"}},
	{Name: "batch-1", Project: "demo", Zone: "europe-west1-d", MachineType: "n2-standard-8", Status: "RUNNING"},
	{Name: "ci-runner", Project: "tools", Zone: "us-east1-b", MachineType: "e2-standard-4", Status: "RUNNING", Labels: map[string]string{"role": "ci"}},
}

// query selects inventory instances. Empty fields match everything.
type query struct {
	project string
	zone    string
	status  string
	labels  map[string]string
	limit   int
}

func (q query) run() []Instance {
	var matched []Instance
	for _, instance := range inventory {
		if q.project != "" && instance.Project != q.project {
			continue
		}
		if q.zone != "" && instance.Zone != q.zone {
			continue
		}
		if q.status != "" && instance.Status != q.status {
			continue
		}
		if !hasLabels(instance, q.labels) {
			continue
		}
		matched = append(matched, instance)
	}
	slices.SortFunc(matched, func(a, b Instance) int {
		return cmp.Or(cmp.Compare(a.Zone, b.Zone), cmp.Compare(a.Name, b.Name))
	})
	if q.limit > 0 && len(matched) > q.limit {
		matched = matched[:q.limit]
	}
	return matched
}

func hasLabels(instance Instance, labels map[string]string) bool {
	for key, value := range labels {
		if instance.Labels[key] != value {
			return false
		}
	}
	return true
}
