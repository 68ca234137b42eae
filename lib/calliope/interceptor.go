// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calliope

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/pflag"
)

// ValueKind is the type of value an argument carries.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueDuration
	ValueStringSlice

	// ValueStringMap is a comma-separated list of KEY=VALUE pairs
	// stored as a map[string]string.
	ValueStringMap

	// ValueBinarySize is a byte count written with a binary unit
	// ("512MiB", "10GB"; KB, MB, and GB are powers of 1024 too). A
	// bare number is in gigabytes. It is stored as an int64.
	ValueBinarySize
)

func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueBool:
		return "bool"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValueDuration:
		return "duration"
	case ValueStringSlice:
		return "strings"
	case ValueStringMap:
		return "map"
	case ValueBinarySize:
		return "size"
	default:
		return fmt.Sprintf("ValueKind(%d)", int(k))
	}
}

// ArgOptions configures one argument passed to
// [ArgumentInterceptor.AddArgument].
type ArgOptions struct {
	// Dest is the name the value is stored under. Derived from the
	// argument name when empty: leading dashes stripped, remaining
	// dashes replaced by underscores.
	Dest string

	// Short is a single-letter shorthand for a flag ("z" for -z).
	Short string

	// Kind is the value type. Defaults to ValueString.
	Kind ValueKind

	// Default is recorded for the dest when the argument is not
	// supplied. It must match Kind (string, bool, int, float64,
	// time.Duration, []string, map[string]string, int64) or be nil.
	Default any

	// Required makes the node reject invocations without the argument.
	Required bool

	Help    string
	Metavar string
	Hidden  bool

	// Choices restricts string values, and the elements of string
	// slices, to the listed set.
	Choices []string

	// Min and Max are inclusive bounds for Int, Float, Duration, and
	// BinarySize values, of the same Go type as the value. Nil is
	// unbounded.
	Min any
	Max any

	// MinItems and MaxItems bound the number of elements of a string
	// slice or keys of a string map. Zero MaxItems is unbounded.
	MinItems int
	MaxItems int

	// Nargs applies to positionals only: "" (exactly one), "?" (zero
	// or one), "*" (zero or more), "+" (one or more). Variadic
	// positionals collect a []string and must be declared last.
	Nargs string
}

// Argument is one declared argument of a node.
type Argument struct {
	Name       string
	Dest       string
	Short      string
	Kind       ValueKind
	Default    any
	Required   bool
	Help       string
	Metavar    string
	Hidden     bool
	Choices    []string
	Min        any
	Max        any
	MinItems   int
	MaxItems   int
	Nargs      string
	Positional bool
}

// FlagName returns the flag name without leading dashes.
func (a *Argument) FlagName() string {
	return strings.TrimLeft(a.Name, "-")
}

// DisplayMetavar returns the metavar shown in usage lines: the declared
// Metavar, or the dest in upper case.
func (a *Argument) DisplayMetavar() string {
	if a.Metavar != "" {
		return a.Metavar
	}
	return strings.ToUpper(strings.ReplaceAll(a.Dest, "_", "-"))
}

// Variadic reports whether the positional collects multiple words.
func (a *Argument) Variadic() bool {
	return a.Nargs == "*" || a.Nargs == "+"
}

// register adds the flag to flagSet. short overrides the declared
// shorthand so a merged parse set can drop a shadowed one.
func (a *Argument) register(flagSet *pflag.FlagSet, short string) {
	name := a.FlagName()
	switch a.Kind {
	case ValueBool:
		value, _ := a.Default.(bool)
		flagSet.BoolP(name, short, value, a.Help)
	case ValueInt:
		value, _ := a.Default.(int)
		flagSet.IntP(name, short, value, a.Help)
	case ValueFloat:
		value, _ := a.Default.(float64)
		flagSet.Float64P(name, short, value, a.Help)
	case ValueDuration:
		value, _ := a.Default.(time.Duration)
		flagSet.DurationP(name, short, value, a.Help)
	case ValueStringSlice:
		value, _ := a.Default.([]string)
		flagSet.StringSliceP(name, short, value, a.Help)
	case ValueStringMap:
		value, _ := a.Default.(map[string]string)
		flagSet.StringToStringP(name, short, value, a.Help)
	case ValueBinarySize:
		value, _ := a.Default.(int64)
		size := binarySize(value)
		flagSet.VarP(&size, name, short, a.Help)
	default:
		value, _ := a.Default.(string)
		flagSet.StringP(name, short, value, a.Help)
	}
	if a.Hidden {
		// MarkHidden only fails for unknown names.
		_ = flagSet.MarkHidden(name)
	}
}

// flagValue reads the parsed value of the flag from flagSet.
func (a *Argument) flagValue(flagSet *pflag.FlagSet) (any, error) {
	name := a.FlagName()
	switch a.Kind {
	case ValueBool:
		return flagSet.GetBool(name)
	case ValueInt:
		return flagSet.GetInt(name)
	case ValueFloat:
		return flagSet.GetFloat64(name)
	case ValueDuration:
		return flagSet.GetDuration(name)
	case ValueStringSlice:
		return flagSet.GetStringSlice(name)
	case ValueStringMap:
		return flagSet.GetStringToString(name)
	case ValueBinarySize:
		flag := flagSet.Lookup(name)
		if flag == nil {
			return nil, fmt.Errorf("flag accessed but not defined: %s", name)
		}
		size, ok := flag.Value.(*binarySize)
		if !ok {
			return nil, fmt.Errorf("trying to get size value of flag of type %s", flag.Value.Type())
		}
		return int64(*size), nil
	default:
		return flagSet.GetString(name)
	}
}

// binarySize is the pflag value behind ValueBinarySize flags.
type binarySize int64

func (s *binarySize) String() string { return units.BytesSize(float64(*s)) }

func (s *binarySize) Set(word string) error {
	size, err := parseBinarySize(word)
	if err != nil {
		return err
	}
	*s = binarySize(size)
	return nil
}

func (s *binarySize) Type() string { return "size" }

// parseBinarySize parses a byte count with an optional binary unit. A
// bare number is in gigabytes.
func parseBinarySize(word string) (int64, error) {
	word = strings.TrimSpace(word)
	if _, err := strconv.ParseUint(word, 10, 64); err == nil {
		word += "GB"
	}
	size, err := units.RAMInBytes(word)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: want an integer with an optional unit such as MiB or GB", word)
	}
	return size, nil
}

// parseStringMap parses "KEY=VALUE,KEY2=VALUE2".
func parseStringMap(word string) (map[string]string, error) {
	values := make(map[string]string)
	if word == "" {
		return values, nil
	}
	for _, pair := range strings.Split(word, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%q is not a KEY=VALUE pair", pair)
		}
		values[key] = value
	}
	return values, nil
}

// convert turns a positional word into a value of the argument's kind.
func (a *Argument) convert(word string) (any, error) {
	switch a.Kind {
	case ValueBool:
		return strconv.ParseBool(word)
	case ValueInt:
		return strconv.Atoi(word)
	case ValueFloat:
		return strconv.ParseFloat(word, 64)
	case ValueDuration:
		return time.ParseDuration(word)
	case ValueStringSlice:
		return strings.Split(word, ","), nil
	case ValueStringMap:
		return parseStringMap(word)
	case ValueBinarySize:
		return parseBinarySize(word)
	default:
		return word, nil
	}
}

// valueKind is the kind of the values bound to the dest: variadic
// positionals collect a string slice.
func (a *Argument) valueKind() ValueKind {
	if a.Variadic() {
		return ValueStringSlice
	}
	return a.Kind
}

// checkValue verifies a supplied value against the declared kind and
// choices.
func (a *Argument) checkValue(path []string, value any) error {
	if value == nil {
		return nil
	}
	kind := a.valueKind()
	if !valueMatches(kind, value) {
		return &InvalidValueError{Path: path, Dest: a.Dest, Value: value, Reason: fmt.Sprintf("expected a %s, got %T", kind, value)}
	}
	if reason := a.outOfBounds(kind, value); reason != "" {
		return &InvalidValueError{Path: path, Dest: a.Dest, Value: displayValue(kind, value), Reason: reason}
	}
	if len(a.Choices) == 0 {
		return nil
	}
	var words []string
	switch typed := value.(type) {
	case string:
		words = []string{typed}
	case []string:
		words = typed
	default:
		return &InvalidValueError{Path: path, Dest: a.Dest, Value: value, Reason: "choices apply to string values only"}
	}
	for _, word := range words {
		if !slices.Contains(a.Choices, word) {
			return &InvalidValueError{Path: path, Dest: a.Dest, Value: word, Choices: a.Choices}
		}
	}
	return nil
}

// outOfBounds returns why value violates the argument's bounds, or "".
func (a *Argument) outOfBounds(kind ValueKind, value any) string {
	switch typed := value.(type) {
	case []string:
		return a.itemsOutOfBounds(len(typed))
	case map[string]string:
		return a.itemsOutOfBounds(len(typed))
	}
	if a.Min != nil && compareBound(value, a.Min) < 0 {
		return "must be at least " + displayValue(kind, a.Min)
	}
	if a.Max != nil && compareBound(value, a.Max) > 0 {
		return "must be at most " + displayValue(kind, a.Max)
	}
	return ""
}

func (a *Argument) itemsOutOfBounds(count int) string {
	if count < a.MinItems {
		return fmt.Sprintf("needs at least %d item(s), got %d", a.MinItems, count)
	}
	if a.MaxItems > 0 && count > a.MaxItems {
		return fmt.Sprintf("allows at most %d item(s), got %d", a.MaxItems, count)
	}
	return ""
}

// BoundsHelp describes the declared Min and Max for help text, as in
// "between 1 and 100", or returns "".
func (a *Argument) BoundsHelp() string {
	kind := a.valueKind()
	switch {
	case a.Min != nil && a.Max != nil:
		return fmt.Sprintf("between %s and %s", displayValue(kind, a.Min), displayValue(kind, a.Max))
	case a.Min != nil:
		return "at least " + displayValue(kind, a.Min)
	case a.Max != nil:
		return "at most " + displayValue(kind, a.Max)
	default:
		return ""
	}
}

// compareBound orders value against a bound of the same type.
func compareBound(value, bound any) int {
	switch typed := value.(type) {
	case int:
		return cmp.Compare(typed, bound.(int))
	case float64:
		return cmp.Compare(typed, bound.(float64))
	case time.Duration:
		return cmp.Compare(typed, bound.(time.Duration))
	case int64:
		return cmp.Compare(typed, bound.(int64))
	default:
		return 0
	}
}

// displayValue renders a value of kind for messages; sizes are shown
// with a binary unit.
func displayValue(kind ValueKind, value any) string {
	if size, ok := value.(int64); ok && kind == ValueBinarySize {
		return units.BytesSize(float64(size))
	}
	return fmt.Sprint(value)
}

// checkBounds validates the bound declaration against the kind.
func (a *Argument) checkBounds() error {
	kind := a.valueKind()
	for _, bound := range []any{a.Min, a.Max} {
		if bound == nil {
			continue
		}
		switch kind {
		case ValueInt, ValueFloat, ValueDuration, ValueBinarySize:
		default:
			return fmt.Errorf("min and max apply to int, float, duration, and size values, not %s", kind)
		}
		if !valueMatches(kind, bound) {
			return fmt.Errorf("bound %v (%T) does not match kind %s", bound, bound, kind)
		}
	}
	if a.Min != nil && a.Max != nil && compareBound(a.Min, a.Max) > 0 {
		return fmt.Errorf("min %v is greater than max %v", a.Min, a.Max)
	}
	if a.MinItems != 0 || a.MaxItems != 0 {
		if kind != ValueStringSlice && kind != ValueStringMap {
			return fmt.Errorf("item counts apply to string slices and maps, not %s", kind)
		}
		if a.MinItems < 0 || a.MaxItems < 0 || (a.MaxItems > 0 && a.MinItems > a.MaxItems) {
			return fmt.Errorf("invalid item bounds %d..%d", a.MinItems, a.MaxItems)
		}
	}
	return nil
}

// ArgumentInterceptor records the arguments a node declares. It is
// handed to the module's Args hook and is read-only once the tree is
// generated.
type ArgumentInterceptor struct {
	path            []string
	allowPositional bool

	// flagSet holds the node's own flags for help output. Parsing
	// always uses a fresh set built from the recorded arguments.
	flagSet *pflag.FlagSet

	arguments []*Argument
	byDest    map[string]*Argument
	defaults  map[string]any
	required  []string
}

func newArgumentInterceptor(path []string, allowPositional bool) *ArgumentInterceptor {
	flagSet := pflag.NewFlagSet(joinPath(path), pflag.ContinueOnError)
	flagSet.SortFlags = false
	return &ArgumentInterceptor{
		path:            path,
		allowPositional: allowPositional,
		flagSet:         flagSet,
		byDest:          make(map[string]*Argument),
		defaults:        make(map[string]any),
	}
}

// AddArgument declares an argument. A name starting with "-" declares
// a flag ("--zone"); anything else declares a positional ("instance").
func (ai *ArgumentInterceptor) AddArgument(name string, options ArgOptions) error {
	argument := &Argument{
		Name:       name,
		Dest:       options.Dest,
		Short:      options.Short,
		Kind:       options.Kind,
		Default:    options.Default,
		Required:   options.Required,
		Help:       options.Help,
		Metavar:    options.Metavar,
		Hidden:     options.Hidden,
		Choices:    options.Choices,
		Min:        options.Min,
		Max:        options.Max,
		MinItems:   options.MinItems,
		MaxItems:   options.MaxItems,
		Nargs:      options.Nargs,
		Positional: !strings.HasPrefix(name, "-"),
	}
	fail := func(format string, args ...any) error {
		return &ArgumentError{Path: ai.path, Argument: name, Message: fmt.Sprintf(format, args...)}
	}

	bare := strings.TrimLeft(name, "-")
	if bare == "" {
		return fail("argument name is empty")
	}
	if argument.Dest == "" {
		argument.Dest = strings.ReplaceAll(bare, "-", "_")
	}

	if argument.Positional {
		if !ai.allowPositional {
			return fail("groups cannot have positional arguments")
		}
		if strings.Contains(name, "-") {
			return fail("positional arguments cannot contain a '-'; use an underscore")
		}
		if argument.Short != "" {
			return fail("positional arguments cannot have a shorthand")
		}
		switch argument.Nargs {
		case "", "?", "*", "+":
		default:
			return fail("unsupported nargs %q", argument.Nargs)
		}
		if argument.Variadic() && argument.Kind != ValueString && argument.Kind != ValueStringSlice {
			return fail("variadic positionals must be strings")
		}
		for _, existing := range ai.Positionals() {
			if existing.Variadic() {
				return fail("positional follows variadic positional %q", existing.Name)
			}
		}
		// A plain or one-or-more positional must be present.
		if argument.Nargs == "" || argument.Nargs == "+" {
			argument.Required = true
		}
	} else {
		if argument.Nargs != "" {
			return fail("nargs applies to positional arguments only")
		}
		if bare == "help" || argument.Short == "h" {
			return fail("-h and --help are reserved")
		}
		if len(argument.Short) > 1 {
			return fail("shorthand %q is more than one character", argument.Short)
		}
		if ai.flagSet.Lookup(bare) != nil {
			return fail("flag is already declared")
		}
		if argument.Short != "" && ai.flagSet.ShorthandLookup(argument.Short) != nil {
			return fail("shorthand -%s is already declared", argument.Short)
		}
	}

	if _, exists := ai.byDest[argument.Dest]; exists {
		return fail("dest %q is already declared", argument.Dest)
	}
	if !valueMatches(argument.valueKind(), argument.Default) {
		return fail("default %v (%T) does not match kind %s", argument.Default, argument.Default, argument.valueKind())
	}
	if err := argument.checkBounds(); err != nil {
		return fail("%v", err)
	}
	if err := argument.checkValue(ai.path, argument.Default); err != nil {
		var invalid *InvalidValueError
		if errors.As(err, &invalid) && invalid.Reason != "" {
			return fail("default %s", invalid.Reason)
		}
		return fail("default is not one of the choices")
	}

	if !argument.Positional {
		argument.register(ai.flagSet, argument.Short)
	}
	ai.arguments = append(ai.arguments, argument)
	ai.byDest[argument.Dest] = argument
	ai.defaults[argument.Dest] = argument.Default
	if argument.Required {
		ai.required = append(ai.required, argument.Dest)
	}
	return nil
}

func valueMatches(kind ValueKind, value any) bool {
	if value == nil {
		return true
	}
	switch kind {
	case ValueBool:
		_, ok := value.(bool)
		return ok
	case ValueInt:
		_, ok := value.(int)
		return ok
	case ValueFloat:
		_, ok := value.(float64)
		return ok
	case ValueDuration:
		_, ok := value.(time.Duration)
		return ok
	case ValueStringSlice:
		_, ok := value.([]string)
		return ok
	case ValueStringMap:
		_, ok := value.(map[string]string)
		return ok
	case ValueBinarySize:
		_, ok := value.(int64)
		return ok
	default:
		_, ok := value.(string)
		return ok
	}
}

// Dests returns the declared dests in declaration order.
func (ai *ArgumentInterceptor) Dests() []string {
	dests := make([]string, len(ai.arguments))
	for i, argument := range ai.arguments {
		dests[i] = argument.Dest
	}
	return dests
}

// Defaults returns a copy of the declared defaults, keyed by dest.
func (ai *ArgumentInterceptor) Defaults() map[string]any {
	defaults := make(map[string]any, len(ai.defaults))
	for dest, value := range ai.defaults {
		defaults[dest] = value
	}
	return defaults
}

// Required returns the mandatory dests in declaration order.
func (ai *ArgumentInterceptor) Required() []string {
	return slices.Clone(ai.required)
}

// HasDest reports whether dest was declared at this node.
func (ai *ArgumentInterceptor) HasDest(dest string) bool {
	_, ok := ai.byDest[dest]
	return ok
}

// Argument returns the argument declared under dest.
func (ai *ArgumentInterceptor) Argument(dest string) (*Argument, bool) {
	argument, ok := ai.byDest[dest]
	return argument, ok
}

// Arguments returns every declared argument in declaration order.
func (ai *ArgumentInterceptor) Arguments() []*Argument {
	return slices.Clone(ai.arguments)
}

// Positionals returns the positional arguments in declaration order.
func (ai *ArgumentInterceptor) Positionals() []*Argument {
	var positionals []*Argument
	for _, argument := range ai.arguments {
		if argument.Positional {
			positionals = append(positionals, argument)
		}
	}
	return positionals
}

// Flags returns the flag arguments in declaration order.
func (ai *ArgumentInterceptor) Flags() []*Argument {
	var flags []*Argument
	for _, argument := range ai.arguments {
		if !argument.Positional {
			flags = append(flags, argument)
		}
	}
	return flags
}

// FlagSet returns the node's own flags, for help rendering. Callers
// must not parse with it.
func (ai *ArgumentInterceptor) FlagSet() *pflag.FlagSet {
	return ai.flagSet
}

// ValidateArgs checks supplied against the declaration: every required
// dest must be present and every supplied key must be declared.
func (ai *ArgumentInterceptor) ValidateArgs(supplied map[string]any) error {
	var missing []string
	for _, dest := range ai.required {
		if _, ok := supplied[dest]; !ok {
			missing = append(missing, dest)
		}
	}
	if len(missing) > 0 {
		return &MissingArgumentError{Path: ai.path, Missing: missing}
	}

	var unexpected []string
	for key := range supplied {
		if _, ok := ai.byDest[key]; !ok {
			unexpected = append(unexpected, key)
		}
	}
	if len(unexpected) > 0 {
		slices.Sort(unexpected)
		return &UnexpectedArgumentError{Path: ai.path, Unexpected: unexpected}
	}

	for key, value := range supplied {
		if err := ai.byDest[key].checkValue(ai.path, value); err != nil {
			return err
		}
	}
	return nil
}
