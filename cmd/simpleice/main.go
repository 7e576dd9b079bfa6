// simpleice schedules "in case of emergency" mails. Once activated, a mail is
// due at the date and time given unless it is explicitly deactivated.
package main

import (
	"fmt"
	"io"
	"os"
)

const usage = `Schedule emails in case of emergency.

Usage:
  simpleice <command> [flags]

Commands:
  check               List active ICE mails that are due
  activate            Set delivery date and activate an ICE mail
  create-config       Create empty configuration file
  deactivate          Deactivate an active ICE mail
  edit                Edit an existing ICE mail
  list                List existing ICE mails
  new                 Create new ICE mail
  remove              Remove an ICE mail
  show                Show details of an ICE mail

Every command accepts --config to point at a configuration file other than
~/.simpleice (or $SIMPLEICE_CONFIG). Run "simpleice <command> --help" for the
flags of a command.
`

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	return c.run(args)
}

func (c *cli) run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usage)
		return exitUsage
	}

	name, rest := args[0], args[1:]

	switch name {
	case "-h", "--help", "help":
		fmt.Fprint(c.stdout, usage)
		return exitOK
	case "create-config":
		return c.createConfig(rest)
	case "list":
		return c.list(rest)
	case "new":
		return c.create(rest)
	case "show":
		return c.show(rest)
	case "edit":
		return c.edit(rest)
	case "activate":
		return c.activate(rest)
	case "deactivate":
		return c.deactivate(rest)
	case "remove":
		return c.remove(rest)
	case "check":
		return c.check(rest)
	default:
		fmt.Fprintf(c.stderr, "unknown command %q\n\n%s", name, usage)
		return exitUsage
	}
}
