// Command decodetree drives the specification -> decoder-tree ->
// generated-source pipeline: "build" emits Go source, "check" runs the
// reachability pass and prints its report without emitting anything.
package main

import (
	"fmt"
	"os"

	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	app = kingpin.New("decodetree", "Builds decoder trees from bit-pattern specifications.")

	appArgs = struct {
		config     *string
		verbose    *bool
		fixedFlags *string
	}{}

	buildCmd  = app.Command("build", "Parse a specification and emit generated source.")
	buildArgs = struct {
		spec    *string
		output  *string
		pkg     *string
		funcName *string
	}{}

	checkCmd  = app.Command("check", "Parse a specification and report unreachable rules.")
	checkArgs = struct {
		spec *string
	}{}
)

func init() {
	appArgs.config = app.Flag("config", "Path to a JSON Config overriding the built-in defaults.").String()
	appArgs.verbose = app.Flag("verbose", "Log each parser/builder/emitter decision.").Bool()
	appArgs.fixedFlags = app.Flag("fixed-flags", "Comma-separated NAME or !NAME list of context flags fixed before the build.").String()

	buildArgs.spec = buildCmd.Arg("spec", "Path to the specification file.").Required().String()
	buildArgs.output = buildCmd.Flag("output", "Output file; stdout if omitted.").Short('o').String()
	buildArgs.pkg = buildCmd.Flag("package", "Package clause of the generated file.").Default("decodetree").String()
	buildArgs.funcName = buildCmd.Flag("func", "Name of the generated decode function.").Default("Decode").String()

	checkArgs.spec = checkCmd.Arg("spec", "Path to the specification file.").Required().String()
}

func main() {
	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case buildCmd.FullCommand():
		if err := doBuild(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case checkCmd.FullCommand():
		if err := doCheck(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
