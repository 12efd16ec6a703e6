package main

import (
	"fmt"
	"os"

	"dyms/runtime"

	"github.com/chzyer/readline"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// runFile reads path, interprets it on vm, and exits the process with the
// code matching the failure category: 74 if the file can't be read, 65 on
// a compile error, 70 on a runtime error.
func runFile(vm *runtime.VM, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file '%s': %v\n", path, err)
		os.Exit(exitIOErr)
	}

	result, rerr := vm.Interpret(string(source))
	switch result {
	case runtime.InterpretCompileError:
		reportCompileError(rerr)
		os.Exit(exitDataErr)
	case runtime.InterpretRuntimeError:
		fmt.Fprintln(os.Stderr, rerr.Error())
		os.Exit(exitSoftware)
	}
	return nil
}

// reportCompileError unwraps a *multierror.Error so every accumulated
// diagnostic is printed on its own line, matching the one-error-per-line
// convention the compiler's panic-mode recovery is built to support.
func reportCompileError(err error) {
	if merr, ok := err.(*multierror.Error); ok {
		for _, e := range merr.Errors {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}

// runREPL is a read-eval-print loop in the book's tradition: one line in,
// one result out, compile/runtime errors reported without exiting. State
// (globals, interned strings) persists across lines because it all lives
// on the one VM instance for the session.
func runREPL(vm *runtime.VM, log *logrus.Logger) {
	rl, err := readline.New("> ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitIOErr)
	}
	defer rl.Close()

	log.Info("REPL session started")
	defer log.Info("REPL session ended")

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF on Ctrl-D, readline.ErrInterrupt on Ctrl-C
			return
		}
		if line == "" {
			continue
		}

		result, rerr := vm.Interpret(line)
		switch result {
		case runtime.InterpretCompileError:
			reportCompileError(rerr)
		case runtime.InterpretRuntimeError:
			fmt.Fprintln(os.Stderr, rerr.Error())
		}
	}
}
