package main

import (
	"os"

	"dyms/runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Exit codes follow the sysexits.h convention the language's diagnostics
// are modeled on: 64 for CLI usage errors, 65 for a bad source file
// (compile errors), 70 for a runtime fault, 74 for I/O failure.
const (
	exitOK       = 0
	exitUsage    = 64
	exitDataErr  = 65
	exitSoftware = 70
	exitIOErr    = 74
)

var (
	traceExecution bool
	logLevel       string
)

var rootCmd = &cobra.Command{
	Use:          "dyms [script]",
	Short:        "dyms runs and REPLs the DYMS scripting language",
	SilenceUsage: true,
	Args:         cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 1 {
			cmd.Println("Usage: dyms [script]")
			os.Exit(exitUsage)
		}

		log := newLogger(logLevel)
		vm := runtime.New(log)
		vm.Trace = traceExecution

		if len(args) == 0 {
			runREPL(vm, log)
			return nil
		}
		return runFile(vm, args[0])
	},
}

func init() {
	rootCmd.Flags().BoolVar(&traceExecution, "trace", false, "log each executed instruction's disassembly at debug level")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "diagnostic log level: trace, debug, info, warn, error")
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.WarnLevel
	}
	log.SetLevel(lvl)
	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitUsage)
	}
}
