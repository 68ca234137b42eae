// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/bureau-foundation/calliope/lib/clock"
	"github.com/bureau-foundation/calliope/lib/logging"
	"github.com/bureau-foundation/calliope/lib/userconfig"
)

// UnknownArgumentPolicy decides what happens to supplied argument names
// that no node on the invoked path declares.
type UnknownArgumentPolicy int

const (
	// StrictUnknown rejects them with an [*UnexpectedArgumentError].
	StrictUnknown UnknownArgumentPolicy = iota

	// IgnoreUnknown drops them silently.
	IgnoreUnknown
)

// HelpFunc renders the detailed help document shown for --help.
type HelpFunc func(w io.Writer, node Node, commandPath []string) error

// LoaderOptions configures a [CLILoader].
type LoaderOptions struct {
	// Name is the program name and the root of every command path.
	Name string

	// Registry holds the command modules.
	Registry *Registry

	// RootModule is the module path of the root group.
	RootModule string

	// AllowNonExistingModules skips release tracks and mounts whose
	// module is not registered instead of failing.
	AllowNonExistingModules bool

	// LoadContext builds the tool context from the persisted config.
	LoadContext func(Config) (ToolContext, error)

	// ConfigFile is the persisted JSON config. Empty disables
	// persistence: every invocation sees an empty config.
	ConfigFile string

	// LogsDir receives one debug-level log file per process. Empty
	// disables file logging.
	LogsDir string

	// VersionFunc enables -v/--version when set.
	VersionFunc func() string

	// HelpFunc renders --help. The built-in usage text is used when nil
	// and always for -h.
	HelpFunc HelpFunc

	UnknownArguments UnknownArgumentPolicy

	// KnownErrors match errors that are reported like tool errors in
	// CLI mode rather than as unexpected failures.
	KnownErrors []func(error) bool

	// Clock stamps the log file and times invocations. Defaults to
	// clock.Real().
	Clock clock.Clock

	Stdout io.Writer
	Stderr io.Writer
}

type trackEntry struct {
	track     ReleaseTrack
	module    string
	component string
}

type moduleMount struct {
	commandPath string
	module      string
	component   string
}

type missingComponent struct {
	path      []string
	component string
}

// CLILoader collects the layout of a command-line interface and
// generates it.
type CLILoader struct {
	options      LoaderOptions
	tracks       []trackEntry
	mounts       []moduleMount
	preRunHooks  []*runHook
	postRunHooks []*runHook
}

// NewCLILoader validates options and returns a loader.
func NewCLILoader(options LoaderOptions) (*CLILoader, error) {
	if options.Name == "" {
		return nil, layoutErrorf("you must specify a CLI name")
	}
	if !validModuleName.MatchString(moduleName(options.Name)) {
		return nil, layoutErrorf("CLI name %q is invalid: names must be lower case and cannot contain dots or spaces", options.Name)
	}
	if options.Registry == nil {
		return nil, layoutErrorf("you must specify a module registry")
	}
	if options.RootModule == "" {
		return nil, layoutErrorf("you must specify a command root")
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Stderr == nil {
		options.Stderr = os.Stderr
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	return &CLILoader{options: options}, nil
}

// AddReleaseTrack mounts the group at modulePath as the root of track.
// component names the installable component that provides it, for
// [CLI.ComponentsForMissingCommand].
func (l *CLILoader) AddReleaseTrack(track ReleaseTrack, modulePath, component string) error {
	if track.IsGA() {
		return layoutErrorf("the GA track is the root; it cannot be added as a release track")
	}
	if !validModuleName.MatchString(track.Prefix) {
		return layoutErrorf("release track %s: prefix [%s] must be lower case", track.ID, track.Prefix)
	}
	for _, existing := range l.tracks {
		if existing.track.ID == track.ID {
			return layoutErrorf("release track %s is already registered", track.ID)
		}
	}
	l.tracks = append(l.tracks, trackEntry{track: track, module: modulePath, component: component})
	return nil
}

// AddModule mounts the module at modulePath under the existing group
// named by the dotted commandPath's parent ("compute.ssh" mounts a
// child named "ssh" under "compute"). The mount is applied to every
// loaded track in which the parent group exists. Path segments follow
// the module naming rule; [CLILoader.Generate] rejects any that do not.
func (l *CLILoader) AddModule(commandPath, modulePath, component string) error {
	if commandPath == "" || strings.HasPrefix(commandPath, ".") || strings.HasSuffix(commandPath, ".") {
		return layoutErrorf("invalid command path %q for module %q", commandPath, modulePath)
	}
	l.mounts = append(l.mounts, moduleMount{commandPath: commandPath, module: modulePath, component: component})
	return nil
}

// RegisterPreRunHook registers fn to run before every command whose
// dot-joined path matches include (default ".*") and does not match
// exclude. Both patterns are anchored at the start of the path.
func (l *CLILoader) RegisterPreRunHook(fn HookFunc, include, exclude string) error {
	hook, err := newRunHook(fn, include, exclude)
	if err != nil {
		return err
	}
	l.preRunHooks = append(l.preRunHooks, hook)
	return nil
}

// RegisterPostRunHook registers fn to run after every successful
// command whose path matches, before its result is displayed.
func (l *CLILoader) RegisterPostRunHook(fn HookFunc, include, exclude string) error {
	hook, err := newRunHook(fn, include, exclude)
	if err != nil {
		return err
	}
	l.postRunHooks = append(l.postRunHooks, hook)
	return nil
}

// Generate builds the command tree. Any layout problem fails the whole
// build.
func (l *CLILoader) Generate() (*CLI, error) {
	var store *userconfig.Store
	if l.options.ConfigFile != "" {
		store = userconfig.NewStore(l.options.ConfigFile)
	}
	baseHooks := NewConfigHooks(l.options.LoadContext, loadConfigFunc(store), saveConfigFunc(store))

	builder := &treeBuilder{registry: l.options.Registry}
	rootModule, ok := l.options.Registry.Lookup(l.options.RootModule)
	if !ok {
		return nil, layoutErrorf("root module [%s] is not registered", l.options.RootModule)
	}
	groupModule, ok := rootModule.(GroupModule)
	if !ok {
		return nil, layoutErrorf("root module [%s] must be a group", l.options.RootModule)
	}
	root, err := builder.loadGroup(l.options.RootModule, groupModule, moduleName(l.options.Name), nil, baseHooks, GA, false)
	if err != nil {
		return nil, err
	}
	if err := l.addBuiltinArguments(root); err != nil {
		return nil, err
	}

	cli := &CLI{
		options:      l.options,
		root:         root,
		baseHooks:    baseHooks,
		preRunHooks:  l.preRunHooks,
		postRunHooks: l.postRunHooks,
	}

	trackRoots := []*Group{root}
	for _, entry := range l.tracks {
		trackGroup, err := l.loadTrack(builder, cli, root, entry)
		if err != nil {
			return nil, err
		}
		if trackGroup == nil {
			continue
		}
		cli.tracks = append(cli.tracks, entry.track)
		trackRoots = append(trackRoots, trackGroup)
	}

	for _, mount := range l.mounts {
		if err := l.applyMount(builder, cli, trackRoots, mount); err != nil {
			return nil, err
		}
	}

	logs, err := logging.Open(logging.Options{
		Name:    l.options.Name,
		LogsDir: l.options.LogsDir,
		Stderr:  l.options.Stderr,
		Clock:   l.options.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("opening log sink: %w", err)
	}
	cli.logs = logs
	return cli, nil
}

func (l *CLILoader) addBuiltinArguments(root *Group) error {
	err := root.args.AddArgument("--verbosity", ArgOptions{
		Kind:    ValueInt,
		Metavar: "LEVEL",
		Help:    "Log verbosity: 0 errors, 1 warnings, 2 info, 3 debug.",
	})
	if err != nil {
		return err
	}
	if l.options.VersionFunc != nil {
		err := root.args.AddArgument("--version", ArgOptions{
			Short: "v",
			Kind:  ValueBool,
			Help:  "Print version information and exit.",
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// loadTrack loads the track's root group, mounts it under root, and
// copies every GA top-level child the track does not override into it,
// restricted to the modules valid in the track. Returns nil when the
// track module is missing and that is allowed.
func (l *CLILoader) loadTrack(builder *treeBuilder, cli *CLI, root *Group, entry trackEntry) (*Group, error) {
	module, ok := builder.registry.Lookup(entry.module)
	if !ok {
		if !l.options.AllowNonExistingModules {
			return nil, layoutErrorf("release track %s: module [%s] is not registered", entry.track.ID, entry.module)
		}
		cli.recordMissing([]string{root.CLIName(), entry.track.Prefix}, entry.component)
		return nil, nil
	}
	groupModule, ok := module.(GroupModule)
	if !ok {
		return nil, layoutErrorf("release track %s: module [%s] must be a group", entry.track.ID, entry.module)
	}
	trackGroup, err := builder.loadGroup(entry.module, groupModule, entry.track.Prefix, root, root.hooks, entry.track, true)
	if err != nil {
		return nil, err
	}

	trackNames := make(map[string]bool, len(l.tracks))
	for _, other := range l.tracks {
		trackNames[other.track.Prefix] = true
	}
	for _, child := range slices.Concat(root.children, root.withheld) {
		if trackNames[child.Name()] {
			continue
		}
		if _, overridden := trackGroup.childIndex[child.Name()]; overridden {
			continue
		}
		shared, err := restrictToTrack(child, entry.track)
		if err != nil {
			return nil, err
		}
		if shared == nil {
			continue
		}
		if err := trackGroup.addChild(shared); err != nil {
			return nil, err
		}
	}
	if err := root.addChild(trackGroup); err != nil {
		return nil, err
	}
	return trackGroup, nil
}

// restrictToTrack returns node as track sees it: nil when its module
// excludes the track, node itself when nothing below it does, and
// otherwise a copy of the group holding only the children valid in the
// track. Withheld children valid in the track are added to the copy.
func restrictToTrack(node Node, track ReleaseTrack) (Node, error) {
	if !validIn(node.ReleaseTracks(), track) {
		return nil, nil
	}
	group, ok := node.(*Group)
	if !ok {
		return node, nil
	}

	candidates := slices.Concat(group.children, group.withheld)
	kept := make([]Node, 0, len(candidates))
	changed := false
	for i, child := range candidates {
		restricted, err := restrictToTrack(child, track)
		if err != nil {
			return nil, err
		}
		if i < len(group.children) {
			changed = changed || restricted != child
		} else {
			changed = changed || restricted != nil
		}
		if restricted != nil {
			kept = append(kept, restricted)
		}
	}
	if len(kept) == 0 && len(candidates) > 0 {
		return nil, nil
	}
	if !changed {
		return group, nil
	}

	copied := &Group{
		nodeBase:   group.nodeBase,
		filter:     group.filter,
		childIndex: make(map[string]Node, len(kept)),
	}
	for _, child := range kept {
		if err := copied.addChild(child); err != nil {
			return nil, err
		}
	}
	return copied, nil
}

// applyMount loads the mounted module under its parent in every track
// root. A module that declares release tracks is mounted only in those
// tracks; a parent shared between tracks takes the mount, or not, once.
func (l *CLILoader) applyMount(builder *treeBuilder, cli *CLI, trackRoots []*Group, mount moduleMount) error {
	segments := strings.Split(mount.commandPath, ".")
	for _, segment := range segments {
		if !validModuleName.MatchString(segment) {
			return layoutErrorf("command name [%s] in mount [%s] is invalid: names must be lower case and use underscores, not dashes",
				segment, mount.commandPath)
		}
	}
	parentSegments, name := segments[:len(segments)-1], segments[len(segments)-1]

	module, registered := builder.registry.Lookup(mount.module)
	mounted := make(map[*Group]bool)
	for i, trackRoot := range trackRoots {
		track := GA
		if i > 0 {
			track = cli.tracks[i-1]
		}
		parent := findGroup(trackRoot, parentSegments)
		if parent == nil {
			if i == 0 {
				return layoutErrorf("root [%s] for command group [%s] does not exist",
					strings.Join(parentSegments, "."), mount.commandPath)
			}
			continue
		}
		// Parents shared across tracks receive the mount once.
		if mounted[parent] {
			continue
		}
		mounted[parent] = true
		if i > 0 && parent.IsValidSubName(name) {
			continue
		}
		if registered && !validIn(moduleTracks(module), track) {
			continue
		}

		if !registered {
			if !l.options.AllowNonExistingModules {
				return layoutErrorf("module [%s] for command [%s] is not registered", mount.module, mount.commandPath)
			}
			cli.recordMissing(append(parent.Path(), cliName(name)), mount.component)
			continue
		}
		child, err := builder.loadNode(mount.module, module, name, parent, parent.hooks, parent.track)
		if err != nil {
			return err
		}
		if err := parent.addChild(child); err != nil {
			return err
		}
	}
	return nil
}

func findGroup(root *Group, segments []string) *Group {
	current := root
	for _, segment := range segments {
		child, ok := current.Child(segment)
		if !ok {
			return nil
		}
		group, ok := child.(*Group)
		if !ok {
			return nil
		}
		current = group
	}
	return current
}

// treeBuilder loads modules from the registry into nodes.
type treeBuilder struct {
	registry *Registry
}

var validModuleName = regexp.MustCompile(`^[a-z0-9_]+$`)

func (b *treeBuilder) loadNode(modulePath string, module Module, name string, parent *Group, hooks *ConfigHooks, track ReleaseTrack) (Node, error) {
	switch typed := module.(type) {
	case GroupModule:
		return b.loadGroup(modulePath, typed, name, parent, hooks, track, false)
	case CommandModule:
		return b.loadLeaf(modulePath, typed, name, parent, hooks, track)
	default:
		return nil, layoutErrorf("module [%s] has unsupported type %T", modulePath, module)
	}
}

func (b *treeBuilder) base(name string, parent *Group, help string, hidden bool, track ReleaseTrack, allowPositional bool) nodeBase {
	var path []string
	if parent != nil {
		path = append(parent.Path(), cliName(name))
		// Everything under a hidden group is hidden.
		hidden = hidden || parent.Hidden()
	} else {
		path = []string{cliName(name)}
	}
	short, long := splitHelp(help)
	return nodeBase{
		name:      name,
		path:      path,
		shortHelp: short,
		longHelp:  long,
		hidden:    hidden,
		track:     track,
		parent:    parent,
		args:      newArgumentInterceptor(path, allowPositional),
	}
}

func (b *treeBuilder) loadGroup(modulePath string, module GroupModule, name string, parent *Group, hooks *ConfigHooks, track ReleaseTrack, allowEmpty bool) (*Group, error) {
	group := &Group{
		nodeBase:   b.base(name, parent, module.Help, module.Hidden, track, false),
		filter:     module.Filter,
		childIndex: make(map[string]Node),
	}
	group.valid = module.ReleaseTracks
	if module.Args != nil {
		if err := module.Args(group.args); err != nil {
			return nil, fmt.Errorf("loading group [%s]: %w", modulePath, err)
		}
	}
	group.hooks = hooks.WithFilter(module.Filter)

	names := b.registry.children(modulePath)
	for _, childName := range names {
		if !validModuleName.MatchString(childName) {
			return nil, layoutErrorf("command name [%s] in group [%s] is invalid: names must be lower case and use underscores, not dashes",
				childName, modulePath)
		}
	}
	for _, kind := range []NodeKind{KindGroup, KindLeaf} {
		for _, childName := range names {
			childPath := modulePath + "." + childName
			childModule, _ := b.registry.Lookup(childPath)
			if moduleKind(childModule) != kind {
				continue
			}
			valid := validIn(moduleTracks(childModule), track)
			if !valid && !track.IsGA() {
				continue
			}
			child, err := b.loadNode(childPath, childModule, childName, group, group.hooks, track)
			if err != nil {
				return nil, err
			}
			if loaded, ok := child.(*Group); ok && len(loaded.children) == 0 && len(loaded.withheld) > 0 {
				valid = false
			}
			if !valid {
				group.withheld = append(group.withheld, child)
				continue
			}
			if err := group.addChild(child); err != nil {
				return nil, err
			}
		}
	}
	if len(group.children) == 0 && len(group.withheld) == 0 && !allowEmpty {
		return nil, layoutErrorf("group [%s] has no subgroups or commands", modulePath)
	}
	return group, nil
}

func (b *treeBuilder) loadLeaf(modulePath string, module CommandModule, name string, parent *Group, hooks *ConfigHooks, track ReleaseTrack) (*Leaf, error) {
	leaf := &Leaf{
		nodeBase: b.base(name, parent, module.Help, module.Hidden, track, true),
		run:      module.Run,
		display:  module.Display,
	}
	leaf.examples = module.Examples
	leaf.valid = module.ReleaseTracks
	if module.Args != nil {
		if err := module.Args(leaf.args); err != nil {
			return nil, fmt.Errorf("loading command [%s]: %w", modulePath, err)
		}
	}
	leaf.hooks = hooks
	return leaf, nil
}

func moduleKind(module Module) NodeKind {
	switch module.(type) {
	case GroupModule:
		return KindGroup
	case CommandModule:
		return KindLeaf
	default:
		return 0
	}
}

func loadConfigFunc(store *userconfig.Store) func() (Config, error) {
	if store == nil {
		return nil
	}
	return func() (Config, error) {
		values, err := store.Load()
		if err != nil {
			return nil, err
		}
		return Config(values), nil
	}
}

func saveConfigFunc(store *userconfig.Store) func(Config) error {
	if store == nil {
		return nil
	}
	return func(config Config) error {
		return store.Save(map[string]any(config))
	}
}
