// This is the main-driver for our compiler.
package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/skx/cc0/compiler"
	"github.com/skx/cc0/diagnostics"
)

var (
	debugFlag   bool
	compileFlag bool
	runFlag     bool
	outputFlag  string
)

func main() {
	root := &cobra.Command{
		Use:   "cc0 <source>",
		Short: "A compiler for a small subset of C, targeting x86-64 System V assembly.",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	root.Flags().BoolVar(&debugFlag, "debug", false, `Insert an int3 breakpoint at each function's entry.`)
	root.Flags().BoolVar(&compileFlag, "compile", false, "Invoke gcc over the generated assembly and write a binary.")
	root.Flags().BoolVar(&runFlag, "run", false, "Implies --compile; also execute the produced binary.")
	root.Flags().StringVarP(&outputFlag, "output", "o", "a.out", "Path for --compile's binary.")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if runFlag {
		compileFlag = true
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	comp := compiler.New(source, os.Stderr)
	comp.SetDebug(debugFlag)

	out, err := comp.Compile()
	if err != nil {
		emitCompileError(comp.Reporter(), err)
		os.Exit(1)
	}

	if !compileFlag {
		fmt.Print(out)
		return nil
	}

	return assembleAndMaybeRun(out)
}

// emitCompileError renders the innermost diagnostics.Diagnostic (the
// caret-annotated source excerpt) if there is one, falling back to the
// plain pipeline-wrapped message otherwise.
func emitCompileError(r *diagnostics.Reporter, err error) {
	if cause, ok := errors.Cause(err).(*diagnostics.Diagnostic); ok {
		r.Emit(cause)
		return
	}
	r.Emit(err)
}

// assembleAndMaybeRun shells out to gcc to turn the generated assembly
// into a binary at outputFlag, then, if --run was given, executes it
// and forwards its exit code.
func assembleAndMaybeRun(asm string) error {
	gcc := exec.Command("gcc", "-static", "-o", outputFlag, "-x", "assembler", "-")
	gcc.Stdout = os.Stdout
	gcc.Stderr = os.Stderr

	var in bytes.Buffer
	in.WriteString(asm)
	gcc.Stdin = &in

	if err := gcc.Run(); err != nil {
		return fmt.Errorf("invoking gcc: %w", err)
	}

	if !runFlag {
		return nil
	}

	exe := exec.Command(outputFlag)
	exe.Stdout = os.Stdout
	exe.Stderr = os.Stderr
	if err := exe.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return fmt.Errorf("running %s: %w", outputFlag, err)
	}
	return nil
}
