// Command cao-lang-run is a thin demonstration host for the cao-lang
// runtime: it loads a JSON IR document, compiles it, registers a couple
// of demo native callbacks, and runs or inspects the result. It plays
// the role of "host application" from spec.md section 1 without pulling
// any of its choices (JSON, these particular natives, this flag layout)
// into the core API.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/cao-lang/cao-lang-go/caoerr"
	"github.com/cao-lang/cao-lang-go/compiler"
	"github.com/cao-lang/cao-lang-go/vm"
)

func main() {
	app := &cli.App{
		Name:  "cao-lang-run",
		Usage: "compile and run cao-lang IR documents",
		Commands: []*cli.Command{
			runCommand,
			compileCommand,
			dumpCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: caoerr.Code's
// ResultCode plus one (CompileError=2 ... BadInput=5), so that 1 stays free
// for any other failure and scripting wrappers around this CLI can branch
// on the error category the same way an embedder would on caoerr.Code.
func exitCode(err error) int {
	if ee, ok := err.(cli.ExitCoder); ok {
		return ee.ExitCode()
	}
	switch caoerr.Code(err) {
	case caoerr.Ok:
		return 0
	case caoerr.ResultCompileError:
		return 2
	case caoerr.ResultRuntimeError:
		return 3
	case caoerr.ResultTimeout:
		return 4
	case caoerr.ResultBadInput:
		return 5
	default:
		return 1
	}
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "compile and execute an IR document",
	ArgsUsage: "<ir.json>",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "max-instructions", Usage: "instruction budget (0 = unbounded)"},
		&cli.IntFlag{Name: "recursion-limit", Value: 64, Usage: "compiler nesting/recursion limit"},
		&cli.BoolFlag{Name: "verbose", Usage: "log compiler/VM diagnostics to stderr"},
	},
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.Exit("usage: cao-lang-run run <ir.json>", 5)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return caoerr.NewBadInput(err.Error())
		}
		mod, err := DecodeModule("main", data)
		if err != nil {
			return caoerr.NewBadInput(err.Error())
		}

		var copts []compiler.CompilerOption
		copts = append(copts, compiler.WithRecursionLimit(c.Int("recursion-limit")))
		if c.Bool("verbose") {
			copts = append(copts, compiler.WithLogf(func(mess string, args ...interface{}) {
				fmt.Fprintf(os.Stderr, "[compiler] "+mess+"\n", args...)
			}))
		}
		prog, err := compiler.Compile(mod, copts...)
		if err != nil {
			return err
		}

		var vopts []vm.VMOption
		if n := c.Int64("max-instructions"); n > 0 {
			vopts = append(vopts, vm.WithMaxInstructions(n))
		}
		if c.Bool("verbose") {
			vopts = append(vopts, vm.WithLogf(func(format string, args ...interface{}) {
				fmt.Fprintf(os.Stderr, "[vm] "+format+"\n", args...)
			}))
		}
		vopts = append(vopts, registerDemoNatives()...)

		machine := vm.New(vopts...)
		result, err := machine.Run(prog)
		if err != nil {
			return err
		}
		fmt.Printf("=> %v\n", result)
		return nil
	},
}

var compileCommand = &cli.Command{
	Name:      "compile",
	Usage:     "compile an IR document to a persisted bytecode file",
	ArgsUsage: "<ir.json> <out.caolc>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() < 2 {
			return cli.Exit("usage: cao-lang-run compile <ir.json> <out.caolc>", 5)
		}
		data, err := os.ReadFile(c.Args().Get(0))
		if err != nil {
			return caoerr.NewBadInput(err.Error())
		}
		mod, err := DecodeModule("main", data)
		if err != nil {
			return caoerr.NewBadInput(err.Error())
		}
		prog, err := compiler.Compile(mod)
		if err != nil {
			return err
		}
		blob, err := compiler.Encode(prog)
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.Args().Get(1), blob, 0o644); err != nil {
			return caoerr.NewBadInput(err.Error())
		}
		fmt.Printf("compiled %d bytes, hash %x\n", len(blob), prog.Hash)
		return nil
	},
}

var dumpCommand = &cli.Command{
	Name:      "dump",
	Usage:     "disassemble an IR document or a persisted bytecode file",
	ArgsUsage: "<ir.json|prog.caolc>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "bytecode", Usage: "treat the input as a persisted .caolc file rather than JSON IR"},
	},
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.Exit("usage: cao-lang-run dump <ir.json|prog.caolc>", 5)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return caoerr.NewBadInput(err.Error())
		}

		var prog *compiler.CompiledProgram
		if c.Bool("bytecode") {
			prog, err = compiler.Decode(data)
		} else {
			mod, derr := DecodeModule("main", data)
			if derr != nil {
				return caoerr.NewBadInput(derr.Error())
			}
			prog, err = compiler.Compile(mod)
		}
		if err != nil {
			return err
		}

		machine := vm.New(registerDemoNatives()...)
		machine.Attach(prog)
		dumper := vm.NewDumper(machine, os.Stdout)
		dumper.Dump()
		return nil
	},
}
