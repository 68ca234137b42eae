// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"cmp"
	"slices"
)

// ReleaseTrack is a maturity level of the command surface. The GA tree
// lives at the root; each other track is mounted under the root as a
// group named by its prefix.
type ReleaseTrack struct {
	ID      string
	Prefix  string
	HelpTag string
	Notice  string
}

var (
	GA = ReleaseTrack{ID: "GA"}

	Beta = ReleaseTrack{
		ID:      "BETA",
		Prefix:  "beta",
		HelpTag: "(BETA) ",
		Notice:  "This command is currently in BETA and may change without notice.",
	}

	Alpha = ReleaseTrack{
		ID:      "ALPHA",
		Prefix:  "alpha",
		HelpTag: "(ALPHA) ",
		Notice: "This command is currently in ALPHA and may change without notice. " +
			"Usually, users of ALPHA commands and flags need to apply for access, " +
			"agree to applicable terms, and have their projects allowlisted.",
	}
)

// AllReleaseTracks returns the known tracks in GA, beta, alpha order.
func AllReleaseTracks() []ReleaseTrack {
	return []ReleaseTrack{GA, Beta, Alpha}
}

// ReleaseTrackFromPrefix returns the track whose prefix is prefix.
// The empty prefix selects GA.
func ReleaseTrackFromPrefix(prefix string) (ReleaseTrack, bool) {
	for _, track := range AllReleaseTracks() {
		if track.Prefix == prefix {
			return track, true
		}
	}
	return ReleaseTrack{}, false
}

// ReleaseTrackFromID returns the track with the given ID.
func ReleaseTrackFromID(id string) (ReleaseTrack, bool) {
	for _, track := range AllReleaseTracks() {
		if track.ID == id {
			return track, true
		}
	}
	return ReleaseTrack{}, false
}

// IsGA reports whether the track is GA.
func (t ReleaseTrack) IsGA() bool { return t.Prefix == "" }

// ReplicateCommandPathForAllOtherTracks returns, for a command path
// such as [skyctl alpha compute], the equivalent path in every other
// track that was loaded, keyed by track ID. Paths that do not exist in
// a track are omitted.
func (c *CLI) ReplicateCommandPathForAllOtherTracks(path []string) map[string][]string {
	if len(path) == 0 || path[0] != c.root.CLIName() {
		return nil
	}
	current := GA
	rest := path[1:]
	if len(rest) > 0 {
		for _, track := range c.tracks {
			if rest[0] == track.Prefix {
				current = track
				rest = rest[1:]
				break
			}
		}
	}

	others := make(map[string][]string)
	for _, track := range append([]ReleaseTrack{GA}, c.tracks...) {
		if track.ID == current.ID {
			continue
		}
		candidate := []string{path[0]}
		if !track.IsGA() {
			candidate = append(candidate, track.Prefix)
		}
		candidate = append(candidate, rest...)
		if c.IsValidCommand(candidate) {
			others[track.ID] = slices.Clone(candidate)
		}
	}
	return others
}

// alternativeCommands returns the paths equivalent to path that exist
// in the other loaded tracks, ordered by track prefix with GA first.
func (c *CLI) alternativeCommands(path []string) [][]string {
	others := c.ReplicateCommandPathForAllOtherTracks(path)
	if len(others) == 0 {
		return nil
	}
	tracks := append([]ReleaseTrack{GA}, c.tracks...)
	slices.SortFunc(tracks, func(a, b ReleaseTrack) int { return cmp.Compare(a.Prefix, b.Prefix) })
	var alternatives [][]string
	for _, track := range tracks {
		if candidate, ok := others[track.ID]; ok {
			alternatives = append(alternatives, candidate)
		}
	}
	return alternatives
}

// EffectiveTrack returns the track node is presented under when it is
// reached through track. GA nodes shared into a release track take on
// that track.
func EffectiveTrack(node Node, track ReleaseTrack) ReleaseTrack {
	if own := node.ReleaseTrack(); !own.IsGA() {
		return own
	}
	if track.IsGA() {
		return GA
	}
	return track
}

// ReleaseTrackForPath resolves path (CLI names, root first) from root
// and returns the track it runs through.
func ReleaseTrackForPath(root *Group, path []string) ReleaseTrack {
	nodes := []Node{root}
	var current Node = root
	for _, name := range path[min(1, len(path)):] {
		group, ok := current.(*Group)
		if !ok {
			break
		}
		child, ok := group.Child(name)
		if !ok {
			break
		}
		nodes = append(nodes, child)
		current = child
	}
	return pathTrack(nodes)
}

// pathTrack is the track of the first node on the path that is not GA.
func pathTrack(nodes []Node) ReleaseTrack {
	for _, node := range nodes {
		if track := node.ReleaseTrack(); !track.IsGA() {
			return track
		}
	}
	return GA
}

// validIn reports whether a module that declared tracks may be loaded
// in track. No declaration allows every track.
func validIn(tracks []ReleaseTrack, track ReleaseTrack) bool {
	if len(tracks) == 0 {
		return true
	}
	return slices.ContainsFunc(tracks, func(candidate ReleaseTrack) bool { return candidate.ID == track.ID })
}
