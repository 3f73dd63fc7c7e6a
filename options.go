package squash

import (
	"strconv"
)

// OptionType identifies the type of a single option schema entry (spec
// §3 OptionSchema).
type OptionType int

const (
	OptionBool OptionType = iota
	OptionString
	OptionInt
	OptionSize
	OptionEnumString
	OptionEnumInt
	OptionRangeInt
	OptionRangeSize
)

// OptionEntry describes one entry in a codec's OptionSchema: a name, a
// type, type-specific constraints, and a default value.
type OptionEntry struct {
	Name    string
	Type    OptionType
	Default any

	// EnumString: the set of recognized string values, each mapping
	// (by index) to EnumBacking[i].
	EnumValues  []string
	EnumBacking []int

	// EnumInt: the finite set of recognized ints.
	EnumInts []int

	// RangeInt / RangeSize.
	RangeMin, RangeMax int64
	RangeModulus       int64 // 0 means "no modulus constraint"
	AllowZero          bool
}

// OptionSchema is an ordered list of option entries, supplied statically
// by a codec's plugin.
type OptionSchema []OptionEntry

func (s OptionSchema) indexOf(name string) int {
	for i, e := range s {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// Options holds a dense array of option values sized to its codec's
// schema, floating-referenced (spec §3/§9) so callers can build and
// pass them without explicit unref when the receiver retains them.
type Options struct {
	refCount
	Codec  *Codec
	values []any
}

// NewOptions creates a floating Options for codec, with every entry set
// to its schema default.
func NewOptions(codec *Codec) *Options {
	schema := codec.Schema
	o := &Options{Codec: codec, values: make([]any, len(schema))}
	for i, e := range schema {
		o.values[i] = e.Default
	}
	o.refCount = newFloatingRef(nil)
	return o
}

// Ref takes a strong reference to o, returning o for chaining.
func (o *Options) Ref() *Options {
	if o == nil {
		return nil
	}
	o.ref()
	return o
}

// Unref releases a reference to o. o may be nil.
func (o *Options) Unref() {
	if o == nil {
		return
	}
	o.unref()
}

// Get returns the current value of the named option, or nil if name
// isn't in the schema.
func (o *Options) Get(name string) any {
	i := o.Codec.Schema.indexOf(name)
	if i < 0 {
		return nil
	}
	return o.values[i]
}

// GetIndex returns the value at ordinal i in the schema.
func (o *Options) GetIndex(i int) any {
	if i < 0 || i >= len(o.values) {
		return nil
	}
	return o.values[i]
}

// Set validates v against the named option's schema entry and stores it.
func (o *Options) Set(name string, v any) Status {
	i := o.Codec.Schema.indexOf(name)
	if i < 0 {
		return StatusNotFound
	}
	return o.SetIndex(i, v)
}

// SetIndex validates v against the schema entry at ordinal i and stores
// it.
func (o *Options) SetIndex(i int, v any) Status {
	if i < 0 || i >= len(o.values) {
		return StatusRange
	}
	entry := o.Codec.Schema[i]
	validated, status := validateOption(entry, v)
	if status != StatusOK {
		return status
	}
	o.values[i] = validated
	return StatusOK
}

// ParseOption coerces a string value (as might come from a command line
// or an INI file) against the named option's schema entry and stores
// it. (spec §6.3 options_parse_option / §"Supplemented features")
func (o *Options) ParseOption(key, value string) Status {
	i := o.Codec.Schema.indexOf(key)
	if i < 0 {
		return StatusNotFound
	}
	entry := o.Codec.Schema[i]
	parsed, status := parseOptionString(entry, value)
	if status != StatusOK {
		return status
	}
	return o.SetIndex(i, parsed)
}

func parseOptionString(e OptionEntry, value string) (any, Status) {
	switch e.Type {
	case OptionBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, StatusBadValue
		}
		return b, StatusOK
	case OptionString, OptionEnumString:
		return value, StatusOK
	case OptionInt, OptionEnumInt, OptionRangeInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, StatusBadValue
		}
		return n, StatusOK
	case OptionSize, OptionRangeSize:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, StatusBadValue
		}
		return uint64(n), StatusOK
	default:
		return nil, StatusBadParam
	}
}

func validateOption(e OptionEntry, v any) (any, Status) {
	switch e.Type {
	case OptionBool:
		b, ok := v.(bool)
		if !ok {
			return nil, StatusBadValue
		}
		return b, StatusOK

	case OptionString:
		s, ok := v.(string)
		if !ok {
			return nil, StatusBadValue
		}
		return s, StatusOK

	case OptionInt:
		n, ok := asInt64(v)
		if !ok {
			return nil, StatusBadValue
		}
		return n, StatusOK

	case OptionSize:
		n, ok := asUint64(v)
		if !ok {
			return nil, StatusBadValue
		}
		return n, StatusOK

	case OptionEnumString:
		s, ok := v.(string)
		if !ok {
			return nil, StatusBadValue
		}
		for _, allowed := range e.EnumValues {
			if allowed == s {
				return s, StatusOK
			}
		}
		return nil, StatusBadValue

	case OptionEnumInt:
		n, ok := asInt64(v)
		if !ok {
			return nil, StatusBadValue
		}
		for _, allowed := range e.EnumInts {
			if int64(allowed) == n {
				return n, StatusOK
			}
		}
		return nil, StatusBadValue

	case OptionRangeInt:
		n, ok := asInt64(v)
		if !ok {
			return nil, StatusBadValue
		}
		if n == 0 && e.AllowZero {
			return n, StatusOK
		}
		if n < e.RangeMin || n > e.RangeMax {
			return nil, StatusRange
		}
		if e.RangeModulus != 0 && n%e.RangeModulus != 0 {
			return nil, StatusRange
		}
		return n, StatusOK

	case OptionRangeSize:
		n, ok := asUint64(v)
		if !ok {
			return nil, StatusBadValue
		}
		if n == 0 && e.AllowZero {
			return n, StatusOK
		}
		if int64(n) < e.RangeMin || int64(n) > e.RangeMax {
			return nil, StatusRange
		}
		if e.RangeModulus != 0 && int64(n)%e.RangeModulus != 0 {
			return nil, StatusRange
		}
		return n, StatusOK

	default:
		return nil, StatusBadParam
	}
}

// asInt64/asUint64 accept the common numeric literal shapes callers are
// likely to pass (the schema default's own type, plain int, or int64)
// without forcing every caller to spell out int64(...) conversions.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	}
	return 0, false
}

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}
