// Package maincmd wires corvid's single-binary CLI surface onto
// mna/mainer's struct-tag flag binding, matching the reference CLI
// contract: prog [-d] [-e STRING] [FILE args...].
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/mna/corvid/lang/corvid"
	"github.com/mna/corvid/lang/dump"
)

const binName = "corvid"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<file> <arg>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<file> <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compile and run a corvid source file, calling its top-level "main"
function with [<file> <arg>...] as its single array argument.

Valid flag options are:
       -d --dump                 Dump the compiled bytecode of "main"
                                  before running it.
       -e --eval STRING          Compile STRING as the body of an
                                  implicit "function main(){ STRING }"
                                  instead of reading a file.
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

More information on the %[1]s repository:
       https://github.com/mna/corvid
`, binName)
)

// Cmd is the corvid binary's entry point, bound to command-line flags by
// mainer's reflection-based Parser.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool   `flag:"h,help"`
	Version bool   `flag:"v,version"`
	Dump    bool   `flag:"d,dump"`
	Eval    string `flag:"e,eval"`

	args []string
}

func (c *Cmd) SetArgs(args []string)          { c.args = args }
func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if c.Eval == "" && len(c.args) == 0 {
		return fmt.Errorf("no source file or -e expression given")
	}
	return nil
}

// Main is the binary's sole entry point, bound via mainer.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.run(ctx, stdio); err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return mainer.Failure
	}
	return mainer.Success
}

func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio) error {
	cfg, err := corvid.LoadConfig()
	if err != nil {
		return err
	}
	prog := corvid.New(cfg)

	var scriptArgs []string
	if c.Eval != "" {
		src := "function main(){ " + c.Eval + " }"
		if err := prog.CompileString("-e", src); err != nil {
			return err
		}
	} else {
		path := c.args[0]
		scriptArgs = c.args
		if err := prog.CompileFile(path); err != nil {
			return err
		}
	}

	if c.Dump {
		def, ok := prog.FuncDef("main")
		if !ok {
			return fmt.Errorf("no top-level \"main\" function defined")
		}
		fmt.Fprint(stdio.Stdout, dump.FuncDef(def))
	}

	result, err := prog.Call("main", prog.NewStringArray(scriptArgs))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdio.Stdout, prog.Display(result))
	return nil
}
