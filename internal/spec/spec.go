package spec

import "fmt"

// SpecificationError is a diagnostic raised by the external-facing
// parser: an unknown directive, a bad number, a malformed pattern, and
// so on. It carries the source line number alongside the message. The
// core (condition/ruleset/dtree/bitfield/builder packages) never
// raises one of these; they are a parser-boundary concern only.
type SpecificationError struct {
	Line    int
	Message string
}

func (e *SpecificationError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// NewSpecificationError builds a SpecificationError.
func NewSpecificationError(line int, format string, args ...interface{}) *SpecificationError {
	return &SpecificationError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// Specification is the in-memory data model of a parsed input: the
// instruction width, the flag table, the ordered rule table, several
// opaque code-fragment slots passed through verbatim to the emitter,
// two indentation depths, and the Config governing tree construction
// and emission. It is owned by the driver and shared by read-only
// reference with the tree-building core.
type Specification struct {
	NBits int

	flagsByIndex []Flag
	flagsByName  map[string]int

	Rules []Rule

	FileStart, FileEnd string
	EnumStart, EnumEnd string
	FetchFlags, FetchWord string

	RootIndentation, EnumIndentation int

	Config Config
}

// New returns an empty Specification of the given instruction width,
// seeded with the single dummy flag.
func New(nBits int) *Specification {
	if nBits < 1 {
		panic("spec: zero-width specification")
	}
	s := &Specification{
		NBits:       nBits,
		flagsByName: make(map[string]int),
		Config:      DefaultConfig(),
	}
	s.flagsByIndex = append(s.flagsByIndex, newDummyFlag())
	s.flagsByName[dummyFlagName] = 0
	return s
}

// NumFlags is the number of declared flags, including the dummy flag
// if no real flag has been added yet.
func (s *Specification) NumFlags() int { return len(s.flagsByIndex) }

// HasFlags reports whether any real (non-dummy) flag has been
// declared.
func (s *Specification) HasFlags() bool {
	return len(s.flagsByIndex) > 1 || (len(s.flagsByIndex) == 1 && !s.flagsByIndex[0].IsDummy)
}

// GetFlag returns the flag at position i.
func (s *Specification) GetFlag(i int) Flag { return s.flagsByIndex[i] }

// FlagName implements condition.FlagNamer.
func (s *Specification) FlagName(i int) string { return s.flagsByIndex[i].Name }

// GetFlagByName returns the flag named name and true, or the zero
// Flag and false if undeclared.
func (s *Specification) GetFlagByName(name string) (Flag, bool) {
	i, ok := s.flagsByName[name]
	if !ok {
		return Flag{}, false
	}
	return s.flagsByIndex[i], true
}

// AddFlag declares a new real flag, removing the dummy flag on first
// call. It returns an error if the name is already taken.
func (s *Specification) AddFlag(name string) (Flag, error) {
	if _, exists := s.flagsByName[name]; exists {
		return Flag{}, fmt.Errorf("spec: duplicate flag %q", name)
	}
	if len(s.flagsByIndex) == 1 && s.flagsByIndex[0].IsDummy {
		s.flagsByIndex = s.flagsByIndex[:0]
		delete(s.flagsByName, dummyFlagName)
	}
	f := Flag{Name: name, Index: len(s.flagsByIndex)}
	s.flagsByIndex = append(s.flagsByIndex, f)
	s.flagsByName[name] = f.Index
	return f, nil
}

// AddRule appends a rule, preserving the user-specified priority
// order (first match wins).
func (s *Specification) AddRule(r Rule) {
	s.Rules = append(s.Rules, r)
}
