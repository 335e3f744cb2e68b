package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/9uanhuo/decodetree/internal/condition"
	"github.com/9uanhuo/decodetree/internal/logx"
	"github.com/9uanhuo/decodetree/internal/parser"
	"github.com/9uanhuo/decodetree/internal/ruleset"
	"github.com/9uanhuo/decodetree/internal/spec"
	"github.com/9uanhuo/decodetree/internal/tristate"
)

// loadSpecification parses specPath, then applies --config and
// --verbose over the defaults the parser already seeded.
func loadSpecification(specPath string) (*spec.Specification, error) {
	f, err := os.Open(specPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", specPath)
	}
	defer f.Close()

	pctx := parser.NewContext()
	if *appArgs.verbose {
		pctx.Logf = logx.New(true)
	}

	s, err := pctx.Parse(f)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if *appArgs.config != "" {
		cf, err := os.Open(*appArgs.config)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", *appArgs.config)
		}
		defer cf.Close()
		cfg, err := spec.LoadConfig(cf)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		s.Config = cfg
	}
	s.Config.Verbose = *appArgs.verbose

	return s, nil
}

// rootRuleSet builds the root RuleSet, narrowed by any flags fixed on
// the command line.
func rootRuleSet(s *spec.Specification) (*ruleset.RuleSet, error) {
	fixed, err := parseFixedFlags(s, *appArgs.fixedFlags)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	initial := condition.New(tristate.New(s.NBits), fixed)
	return ruleset.New(s.Rules, initial), nil
}

// parseFixedFlags accepts a comma-separated NAME or !NAME list, the
// same flag-spec vocabulary a rule's own [..] bracket uses.
func parseFixedFlags(s *spec.Specification, list string) (tristate.Array, error) {
	flags := tristate.New(s.NumFlags())
	list = strings.TrimSpace(list)
	if list == "" {
		return flags, nil
	}
	for _, tok := range strings.Split(list, ",") {
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
			return tristate.Array{}, errors.Errorf("--fixed-flags: undeclared flag %q", tok)
		}
		val := 1
		if negate {
			val = 0
		}
		flags.SetBit(f.Index, val)
	}
	return flags, nil
}
