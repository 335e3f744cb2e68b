package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/9uanhuo/decodetree/internal/builder"
	"github.com/9uanhuo/decodetree/internal/emitter"
	"github.com/9uanhuo/decodetree/internal/logx"
	"github.com/9uanhuo/decodetree/internal/reachability"
)

func doBuild() error {
	s, err := loadSpecification(*buildArgs.spec)
	if err != nil {
		return err
	}

	rs, err := rootRuleSet(s)
	if err != nil {
		return err
	}

	tree := builder.BuildTree(s, rs)

	if report := reachability.Analyze(s, tree); !report.Reachable() {
		fmt.Fprintln(os.Stderr, report.String())
	}

	out := os.Stdout
	if *buildArgs.output != "" {
		f, err := os.Create(*buildArgs.output)
		if err != nil {
			return errors.Wrapf(err, "creating %s", *buildArgs.output)
		}
		defer f.Close()
		out = f
	}

	var logf logx.Func
	if *appArgs.verbose {
		logf = logx.New(true)
	}

	opts := emitter.Options{Package: *buildArgs.pkg, FuncName: *buildArgs.funcName}
	if err := emitter.Emit(out, s, tree, opts, logf); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
