// Package driver implements the explicitly out-of-scope "external
// collaborators" of spec §1: discovering `.plx` source files in a
// directory, parsing them into translation units, driving the core
// pipeline over the combined module, and — once every stage succeeds —
// writing the selected back-end's output and, for the LLVM back-end,
// invoking an external native toolchain to produce an executable.
// Modeled on cmd/thriftfmt/cli.go's run(ctx, ...) shape: everything here
// is factored out of main so it is unit-testable without a subprocess.
package driver

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/codegen/llvm"
	"github.com/plxlang/plxc/internal/codegen/wasm"
	"github.com/plxlang/plxc/internal/compile"
	"github.com/plxlang/plxc/internal/diag"
	"github.com/plxlang/plxc/internal/parser"
)

// Backend names accepted on the command line (spec §6.1).
const (
	BackendLLVM = "llvm"
	BackendWasm = "wasm"
)

// Config carries the resolved command-line surface (spec §6.1's
// defaults already applied by the caller): input = ".", output = ".",
// mode = release, back-end = llvm.
type Config struct {
	InputDir  string
	OutputDir string
	OutName   string
	Debug     bool
	Backend   string
}

// sourceExt is the only extension the driver treats as a translation
// unit (spec §6.2).
const sourceExt = ".plx"

// DiscoverSources lists every `.plx` file directly inside dir, skipping
// subdirectories (spec §6.2), sorted by name so a multi-file build is
// deterministic regardless of the order the OS's directory entries
// happen to arrive in.
func DiscoverSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), sourceExt) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// parseSources reads and parses every file in paths into a translation
// unit. A file that fails to open has its error folded into the
// returned multierr chain only; a file that fails to parse has its
// diagnostics reported on sink by the parser and an error folded into
// the same chain. Parsing continues over the remaining files so a single run
// reports as many problems as possible, the same propagation policy
// spec §7 gives the stages themselves.
func parseSources(pool *ast.Pool, sink diag.Sink, paths []string) ([]compile.Unit, error) {
	var units []compile.Unit
	var errs error
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("open %s: %w", path, err))
			continue
		}
		mod, ok := parser.ParseFile(pool, sink, path, f)
		closeErr := f.Close()
		if closeErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", path, closeErr))
		}
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("parse %s: reported diagnostics", path))
			continue
		}
		units = append(units, compile.Unit{File: path, Module: mod})
	}
	return units, errs
}

// ErrNoSources is returned when an input directory contains no `.plx`
// files to compile.
var ErrNoSources = errors.New("driver: no .plx source files found")

// Run discovers, parses, and compiles every `.plx` file in cfg.InputDir,
// then emits cfg.Backend's output under cfg.OutputDir. It reports false
// (with no output written) if any pipeline stage produced a diagnostic,
// matching spec §2's "the pipeline halts before code generation if any
// earlier stage reported a failure." The returned error carries I/O and
// external-toolchain failures; diagnostics go to sink instead.
func Run(sink diag.Sink, cfg Config) (bool, error) {
	paths, err := DiscoverSources(cfg.InputDir)
	if err != nil {
		return false, err
	}
	if len(paths) == 0 {
		return false, ErrNoSources
	}

	pool := ast.NewPool()
	units, err := parseSources(pool, sink, paths)
	if err != nil {
		return false, err
	}

	mod := compile.Merge(pool, units)
	result := compile.Run(pool, sink, mod)
	if !result.OK() {
		return false, nil
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return false, fmt.Errorf("create output directory %s: %w", cfg.OutputDir, err)
	}

	var emitErr error
	switch cfg.Backend {
	case BackendWasm:
		emitErr = emitWasm(mod, cfg)
	case BackendLLVM, "":
		emitErr = emitLLVM(mod, cfg)
	default:
		return false, fmt.Errorf("driver: unknown back-end %q", cfg.Backend)
	}
	return emitErr == nil, emitErr
}

func emitWasm(mod *ast.Node, cfg Config) error {
	out, err := wasm.EmitModule(mod)
	if err != nil {
		return fmt.Errorf("wasm codegen: %w", err)
	}
	path := filepath.Join(cfg.OutputDir, cfg.OutName+".wasm")
	return os.WriteFile(path, out, 0o644)
}

// emitLLVM writes the textual IR to <outdir>/<outname>.ll, then invokes
// an external native toolchain to turn it into <outdir>/<outname>.exe
// (spec §4.10/§6.3): -O3 -ffast-math in release mode, -O0 in debug mode.
func emitLLVM(mod *ast.Node, cfg Config) error {
	ir, err := llvm.EmitModule(mod)
	if err != nil {
		return fmt.Errorf("llvm codegen: %w", err)
	}
	irPath := filepath.Join(cfg.OutputDir, cfg.OutName+".ll")
	if err := os.WriteFile(irPath, []byte(ir), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", irPath, err)
	}
	exePath := filepath.Join(cfg.OutputDir, cfg.OutName+".exe")
	return invokeNativeToolchain(irPath, exePath, cfg.Debug)
}

// nativeToolchain is the external compiler driver used to turn textual
// LLVM IR into a native executable. A package variable rather than a
// constant so tests can point it at a stub without a real clang
// installed.
var nativeToolchain = "clang"

func invokeNativeToolchain(irPath, exePath string, debug bool) error {
	optFlags := []string{"-O3", "-ffast-math"}
	if debug {
		optFlags = []string{"-O0"}
	}
	args := append([]string{irPath, "-o", exePath}, optFlags...)
	cmd := exec.Command(nativeToolchain, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", nativeToolchain, strings.Join(args, " "), err, out)
	}
	return nil
}
