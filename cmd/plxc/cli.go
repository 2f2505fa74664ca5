package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/plxlang/plxc/internal/diag"
	"github.com/plxlang/plxc/internal/driver"
)

const (
	exitOK          = 0
	exitDiagnostics = 1
	exitUsage       = 2
	exitInternal    = 3
)

// version is the CLI's reported version (spec §6.1's -v/--version).
// There is no release process yet to stamp this from, so it is a plain
// literal, the same way a brand-new CLI in this corpus would start.
const version = "plxc 0.1.0"

type cliOptions struct {
	inputDir  string
	outputDir string
	outName   string
	debug     bool
	backend   string
	help      bool
	showVer   bool
}

// run parses args, drives the compiler, and renders diagnostics to
// stderr. Factored out of main (the teacher's cmd/thriftfmt/cli.go
// shape) so it is testable without a subprocess.
func run(stdout, stderr io.Writer, args []string) int {
	opts, usage, err := parseArgs(args)
	if err != nil {
		writef(stderr, "plxc: %v\n\n%s", err, usage)
		return exitUsage
	}
	if opts.help {
		fmt.Fprint(stdout, usage)
		return exitOK
	}
	if opts.showVer {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	var coll diag.Collector
	cfg := driver.Config{
		InputDir:  opts.inputDir,
		OutputDir: opts.outputDir,
		OutName:   opts.outName,
		Debug:     opts.debug,
		Backend:   opts.backend,
	}
	ok, err := driver.Run(&coll, cfg)
	renderDiagnostics(stderr, coll.Diagnostics)
	if err != nil {
		writef(stderr, "plxc: %v\n", err)
		return exitInternal
	}
	if !ok {
		return exitDiagnostics
	}
	return exitOK
}

func parseArgs(args []string) (cliOptions, string, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("plxc", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.outputDir, "output", ".", "output directory")
	fs.StringVar(&opts.outputDir, "o", ".", "output directory")
	fs.BoolVar(&opts.debug, "debug", false, "build in debug mode (-O0) instead of release (-O3 -ffast-math)")
	fs.BoolVar(&opts.debug, "d", false, "build in debug mode (-O0) instead of release (-O3 -ffast-math)")
	fs.StringVar(&opts.backend, "back-end", driver.BackendLLVM, "code generation back-end: llvm or wasm")
	fs.StringVar(&opts.backend, "b", driver.BackendLLVM, "code generation back-end: llvm or wasm")
	fs.BoolVar(&opts.help, "help", false, "print usage and exit")
	fs.BoolVar(&opts.help, "h", false, "print usage and exit")
	fs.BoolVar(&opts.showVer, "version", false, "print version and exit")
	fs.BoolVar(&opts.showVer, "v", false, "print version and exit")

	usage := cliUsage(fs)
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, usage, err
	}

	opts.inputDir = "."
	rest := fs.Args()
	switch len(rest) {
	case 0:
	case 1:
		opts.inputDir = rest[0]
	default:
		return cliOptions{}, usage, fmt.Errorf("at most one input directory may be given, got %d", len(rest))
	}

	if opts.backend != driver.BackendLLVM && opts.backend != driver.BackendWasm {
		return cliOptions{}, usage, fmt.Errorf("unknown back-end %q (want %q or %q)", opts.backend, driver.BackendLLVM, driver.BackendWasm)
	}
	opts.outName = outNameFor(opts.inputDir)
	return opts, usage, nil
}

func cliUsage(fs *flag.FlagSet) string {
	var b strings.Builder
	b.WriteString("Usage:\n")
	b.WriteString("  plxc [input-dir] [-o|--output out-dir] [-d|--debug] [-b|--back-end llvm|wasm]\n\n")
	b.WriteString("Flags:\n")
	fs.VisitAll(func(f *flag.Flag) {
		writef(&b, "  --%s\t%s\n", f.Name, f.Usage)
	})
	return b.String()
}

// outNameFor derives the built artifact's base name from the input
// directory, since spec §6.1/§6.3 name an `<outname>` without saying
// where it comes from: the input directory's own base name is the
// natural choice (mirroring how a linker defaults an output binary's
// name to its input when none is given), falling back to "out" for "."
// or "/"-rooted directories whose base carries no useful name.
func outNameFor(inputDir string) string {
	base := filepath.Base(filepath.Clean(inputDir))
	if base == "." || base == string(filepath.Separator) {
		return "out"
	}
	return base
}

func renderDiagnostics(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		writef(w, "plxc: %s\n", d.String())
	}
}

func writef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
