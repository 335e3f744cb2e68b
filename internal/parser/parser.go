// Package parser implements the specification grammar from spec.md
// §6: a line-oriented format of directives, pattern rules and
// code-fragment bodies, producing a *spec.Specification. It is
// external to the tree-building core in the same sense the teacher's
// own magic-rule parser sat outside its compiler/interpreter.
package parser

import (
	"bufio"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/9uanhuo/decodetree/internal/condition"
	"github.com/9uanhuo/decodetree/internal/logx"
	"github.com/9uanhuo/decodetree/internal/spec"
	"github.com/9uanhuo/decodetree/internal/tristate"
)

// Context holds the parser's only external knob: a logger, toggled by
// the driver's --debug-parser equivalent.
type Context struct {
	Logf logx.Func
}

// NewContext returns a Context with a no-op logger.
func NewContext() *Context {
	return &Context{Logf: logx.Noop}
}

var weightToken = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?`)

// fragment accumulates the lines of a multi-line code fragment
// (directive body or rule action) until the next line that isn't a
// continuation, at which point commit is called with the joined text.
type fragment struct {
	lines  []string
	commit func(string)
}

func (f *fragment) add(line string) {
	f.lines = append(f.lines, line)
}

func (f *fragment) close() {
	if f == nil {
		return
	}
	f.commit(strings.Join(f.lines, "\n"))
}

// Parse reads a specification from r. Directive and pattern-rule
// syntax errors are returned as *spec.SpecificationError; I/O failures
// are wrapped with github.com/pkg/errors.
func (c *Context) Parse(r io.Reader) (*spec.Specification, error) {
	if c.Logf == nil {
		c.Logf = logx.Noop
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var s *spec.Specification
	var cur *fragment
	ruleStarted := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == "", strings.HasPrefix(line, "#"):
			cur.close()
			cur = nil
			continue

		case strings.HasPrefix(line, "%"):
			cur.close()
			cur = nil
			if ruleStarted {
				return nil, spec.NewSpecificationError(lineNo, "directive after a rule")
			}
			next, err := c.directive(s, lineNo, line[1:])
			if err != nil {
				return nil, err
			}
			if next.spec != nil {
				s = next.spec
			}
			cur = next.fragment

		case strings.HasPrefix(line, "@"):
			if cur == nil {
				return nil, spec.NewSpecificationError(lineNo, "unexpected code fragment line outside a directive or rule")
			}
			cur.add(line[1:])

		case isIndented(line):
			if cur == nil {
				return nil, spec.NewSpecificationError(lineNo, "unexpected continuation line")
			}
			cur.add(strings.TrimSpace(line))

		default:
			cur.close()
			if s == nil {
				return nil, spec.NewSpecificationError(lineNo, "missing 'bits' directive before a rule")
			}
			next, err := c.patternRule(s, lineNo, line)
			if err != nil {
				return nil, err
			}
			ruleStarted = true
			cur = next
		}
	}
	cur.close()

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading specification")
	}
	if s == nil {
		return nil, spec.NewSpecificationError(lineNo, "empty specification: missing 'bits' directive")
	}
	c.Logf("parsed %d rule(s), %d bit(s) wide", len(s.Rules), s.NBits)
	return s, nil
}

func isIndented(line string) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// directiveResult carries the Specification out of the one directive
// that creates it ('bits'), and the fragment (if any) the directive
// opened for its code-fragment body.
type directiveResult struct {
	spec     *spec.Specification
	fragment *fragment
}

func (c *Context) directive(s *spec.Specification, lineNo int, body string) (directiveResult, error) {
	name, rest := splitDirective(body)

	switch name {
	case "bits":
		if s != nil {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "duplicate 'bits' directive")
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "bad number in 'bits' directive: %q", rest)
		}
		if n <= 0 {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "nonsensical bits %d", n)
		}
		return directiveResult{spec: spec.New(n)}, nil

	case "flag":
		if s == nil {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "missing 'bits' directive before 'flag'")
		}
		flagName := strings.TrimSpace(rest)
		if flagName == "" {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "flag directive missing a name")
		}
		if _, err := s.AddFlag(flagName); err != nil {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "%s", err)
		}
		return directiveResult{}, nil

	case "rootIndentation":
		if s == nil {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "missing 'bits' directive before 'rootIndentation'")
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "bad number in 'rootIndentation' directive: %q", rest)
		}
		s.RootIndentation = n
		return directiveResult{}, nil

	case "enumIndentation":
		if s == nil {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "missing 'bits' directive before 'enumIndentation'")
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "bad number in 'enumIndentation' directive: %q", rest)
		}
		s.EnumIndentation = n
		return directiveResult{}, nil

	case "fileStart", "fileEnd", "enumStart", "enumEnd", "decodeFlags", "fetch":
		if s == nil {
			return directiveResult{}, spec.NewSpecificationError(lineNo, "missing 'bits' directive before '%s'", name)
		}
		return directiveResult{fragment: &fragment{commit: fragmentTarget(s, name)}}, nil

	default:
		return directiveResult{}, spec.NewSpecificationError(lineNo, "unknown directive %q", name)
	}
}

func splitDirective(body string) (name, rest string) {
	body = strings.TrimLeft(body, " \t")
	i := strings.IndexAny(body, " \t")
	if i < 0 {
		return body, ""
	}
	return body[:i], strings.TrimSpace(body[i:])
}

func fragmentTarget(s *spec.Specification, name string) func(string) {
	switch name {
	case "fileStart":
		return func(v string) { s.FileStart = v }
	case "fileEnd":
		return func(v string) { s.FileEnd = v }
	case "enumStart":
		return func(v string) { s.EnumStart = v }
	case "enumEnd":
		return func(v string) { s.EnumEnd = v }
	case "decodeFlags":
		return func(v string) { s.FetchFlags = v }
	case "fetch":
		return func(v string) { s.FetchWord = v }
	}
	panic("parser: unreachable directive name " + name)
}

// patternRule parses one rule line: N_bits pattern characters,
// optional $weight, optional [flag-spec], optional trailing inline
// ':' fragment. It appends the rule to s and returns the fragment its
// action accumulates into.
func (c *Context) patternRule(s *spec.Specification, lineNo int, line string) (*fragment, error) {
	if len(line) < s.NBits {
		return nil, spec.NewSpecificationError(lineNo, "wrong bit count in pattern: want %d, got %d", s.NBits, len(line))
	}
	pattern, rest := line[:s.NBits], line[s.NBits:]

	decode := tristate.New(s.NBits)
	for i, ch := range pattern {
		pos := s.NBits - 1 - i
		switch ch {
		case '0':
			decode.SetBit(pos, 0)
		case '1':
			decode.SetBit(pos, 1)
		case '.':
			// undefined; leave it
		default:
			return nil, spec.NewSpecificationError(lineNo, "invalid pattern character %q (want '0', '1' or '.')", ch)
		}
	}

	weight := spec.DefaultWeight
	if strings.HasPrefix(rest, "$") {
		rest = rest[1:]
		tok := weightToken.FindString(rest)
		if tok == "" {
			return nil, spec.NewSpecificationError(lineNo, "bad number after '$'")
		}
		rest = rest[len(tok):]
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, spec.NewSpecificationError(lineNo, "bad number after '$': %q", tok)
		}
		weight = int(math.Trunc(v))
	}

	rest = strings.TrimLeft(rest, " \t")

	flags := tristate.New(s.NumFlags())
	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, spec.NewSpecificationError(lineNo, "unterminated flag spec")
		}
		fl, err := parseFlagSpec(s, lineNo, rest[1:end])
		if err != nil {
			return nil, err
		}
		flags = fl
		rest = rest[end+1:]
	}

	rest = strings.TrimLeft(rest, " \t")

	var inline []string
	if strings.HasPrefix(rest, ":") {
		inline = append(inline, strings.TrimSpace(rest[1:]))
		rest = ""
	}
	if strings.TrimSpace(rest) != "" {
		return nil, spec.NewSpecificationError(lineNo, "unexpected trailing text in rule: %q", rest)
	}

	rule := spec.Rule{
		Condition: condition.New(decode, flags),
		Weight:    weight,
		Line:      lineNo,
	}
	s.AddRule(rule)
	idx := len(s.Rules) - 1

	return &fragment{
		lines:  inline,
		commit: func(v string) { s.Rules[idx].Code = v },
	}, nil
}

func parseFlagSpec(s *spec.Specification, lineNo int, body string) (tristate.Array, error) {
	flags := tristate.New(s.NumFlags())
	if strings.TrimSpace(body) == "" {
		return flags, nil
	}
	for _, tok := range strings.Split(body, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		negate := false
		if strings.HasPrefix(tok, "!") {
			negate = true
			tok = tok[1:]
		}
		f, ok := s.GetFlagByName(tok)
		if !ok {
			return tristate.Array{}, spec.NewSpecificationError(lineNo, "undeclared flag %q", tok)
		}
		val := 1
		if negate {
			val = 0
		}
		flags.SetBit(f.Index, val)
	}
	return flags, nil
}
