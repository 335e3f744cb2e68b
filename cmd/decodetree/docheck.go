package main

import (
	"fmt"

	"github.com/9uanhuo/decodetree/internal/builder"
	"github.com/9uanhuo/decodetree/internal/reachability"
)

func doCheck() error {
	s, err := loadSpecification(*checkArgs.spec)
	if err != nil {
		return err
	}

	rs, err := rootRuleSet(s)
	if err != nil {
		return err
	}

	tree := builder.BuildTree(s, rs)
	report := reachability.Analyze(s, tree)
	fmt.Println(report.String())
	return nil
}
