// Command zexus runs a Zexus source file through the bytecode compiler
// and virtual machine.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zexus-lang/zexus/pkg/compiler/emitter"
	cparser "github.com/zexus-lang/zexus/pkg/compiler/parser"
	"github.com/zexus-lang/zexus/pkg/compiler/semantic"
	"github.com/zexus-lang/zexus/pkg/config"
	"github.com/zexus-lang/zexus/pkg/core/value"
	"github.com/zexus-lang/zexus/pkg/eval"
	"github.com/zexus-lang/zexus/pkg/module"
	"github.com/zexus-lang/zexus/pkg/parser"
	"github.com/zexus-lang/zexus/pkg/renderer"
	"github.com/zexus-lang/zexus/pkg/vm"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "run" {
		fmt.Println("Usage: zexus run <source.zx> [-debug]")
		os.Exit(1)
	}
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	debug := runCmd.Bool("debug", false, "enable debug_log/debug_trace output")
	if len(os.Args) < 3 {
		fmt.Println("Usage: zexus run <source.zx> [-debug]")
		os.Exit(1)
	}
	scriptPath := os.Args[2]
	runCmd.Parse(os.Args[3:])

	src, err := os.ReadFile(scriptPath)
	if err != nil {
		fmt.Printf("error reading %s: %v\n", scriptPath, err)
		os.Exit(1)
	}

	var opts []config.Option
	if *debug {
		opts = append(opts, config.WithDebugLogs())
	}
	cfg := config.New(opts...)
	result, err := run(src, scriptPath, cfg)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
	if result != nil && result != value.Null {
		fmt.Println(result.String())
	}
}

// run drives the two engines that share one grammar (§4.6, §8): a
// source file is first offered to the bytecode compiler and VM, and
// only on a compiler-stage error does it fall back to the tolerant
// parser and tree-walking interpreter. Both paths get an identical
// *value.CallCtx (module resolver, renderer) so a program observes the
// same builtins and side effects regardless of which engine ran it.
func run(src []byte, file string, cfg *config.Config) (value.Value, error) {
	ctx := &value.CallCtx{
		Debug:    cfg.EnableDebugLogs,
		Renderer: renderer.New(),
		Modules:  module.New(),
	}
	result, compiled, err := runCompiled(src, file, ctx)
	if compiled {
		return result, err
	}
	if cfg.EnableDebugLogs {
		fmt.Printf("debug: compiler pipeline failed, falling back to interpreter: %v\n", err)
	}
	return runInterpreted(src, file, cfg, ctx)
}

// runCompiled reports compiled=false when parsing, analysis or emission
// failed; once the VM has started, its result and error are final.
func runCompiled(src []byte, file string, ctx *value.CallCtx) (value.Value, bool, error) {
	prog, err := cparser.New(src, file).Parse()
	if err != nil {
		return nil, false, err
	}
	res, err := semantic.New().Analyze(prog)
	if err != nil {
		return nil, false, err
	}
	compiled, err := emitter.New(res).Emit(prog)
	if err != nil {
		return nil, false, err
	}
	v, err := vm.New(ctx, compiled).Run()
	return v, true, err
}

func runInterpreted(src []byte, file string, cfg *config.Config, ctx *value.CallCtx) (value.Value, error) {
	p := parser.New(src, file, cfg)
	prog := p.Parse()
	if cfg.EnableDebugLogs {
		for _, d := range p.Diagnostics().Items() {
			fmt.Printf("debug: %s\n", d)
		}
	}
	return eval.New(ctx).Run(prog)
}
