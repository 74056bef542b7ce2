package cli

import (
	"fmt"
	"strings"
)

// EatAll is a multi-value option. After its name it takes the next token
// unconditionally, then keeps consuming tokens until one starts with "-".
// With SaveOtherOptions false it consumes every remaining token instead.
//
// A repeated option replaces the earlier values. EatAll implements
// flag.Value so it can be listed in a FlagSet's usage output.
type EatAll struct {
	Name             string
	Usage            string
	Required         bool
	SaveOtherOptions bool

	Values []string
	seen   bool
}

// NewEatAll returns a required option that stops at the next option.
func NewEatAll(name, usage string) *EatAll {
	return &EatAll{Name: name, Usage: usage, Required: true, SaveOtherOptions: true}
}

// String implements flag.Value.
func (e *EatAll) String() string {
	if e == nil {
		return ""
	}
	return strings.Join(e.Values, " ")
}

// Set implements flag.Value; it appends a single value.
func (e *EatAll) Set(v string) error {
	e.Values = append(e.Values, v)
	e.seen = true
	return nil
}

// Seen reports whether the option appeared on the command line.
func (e *EatAll) Seen() bool { return e.seen }

// matches reports whether tok names e, returning the inline value of
// "--name=value" forms.
func (e *EatAll) matches(tok string) (inline string, hasInline, ok bool) {
	if !strings.HasPrefix(tok, "-") {
		return "", false, false
	}
	name := strings.TrimPrefix(strings.TrimPrefix(tok, "-"), "-")
	if k := strings.IndexByte(name, '='); k >= 0 {
		name, inline, hasInline = name[:k], name[k+1:], true
	}
	return inline, hasInline, name == e.Name
}

// isOption reports whether tok ends an eat-all run. Only the long "--"
// prefix counts, so single-dash values such as "-x" are eaten.
func isOption(tok string) bool {
	return strings.HasPrefix(tok, "--")
}

// ExtractEatAll removes every eat-all option and its values from args and
// returns the remaining tokens in order. Nothing after a "--" terminator is
// inspected.
func ExtractEatAll(args []string, options ...*EatAll) ([]string, error) {
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if tok == "--" {
			rest = append(rest, args[i:]...)
			break
		}

		var opt *EatAll
		var inline string
		var hasInline bool
		for _, o := range options {
			if v, has, ok := o.matches(tok); ok {
				opt, inline, hasInline = o, v, has
				break
			}
		}
		if opt == nil {
			rest = append(rest, tok)
			continue
		}

		var values []string
		if hasInline {
			values = append(values, inline)
		} else {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("option --%s requires an argument", opt.Name)
			}
			i++
			values = append(values, args[i])
		}

		if opt.SaveOtherOptions {
			for i+1 < len(args) && !isOption(args[i+1]) {
				i++
				values = append(values, args[i])
			}
		} else {
			values = append(values, args[i+1:]...)
			i = len(args)
		}

		opt.Values = values
		opt.seen = true
	}
	return rest, nil
}
