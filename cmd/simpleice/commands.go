package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"simpleice/internal/app"
	"simpleice/internal/domain/ice"
	"simpleice/internal/infra/config"
	idb "simpleice/internal/infra/database"
	"simpleice/internal/infra/logger"
	"simpleice/internal/infra/storage"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
)

var (
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func renderStatus(s ice.Status) string {
	if s == ice.StatusActive {
		return activeStyle.Render(string(s))
	}
	return inactiveStyle.Render(string(s))
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// now overrides the wall clock; nil means time.Now.
	now func() time.Time
}

// command bundles the flag set shared by every subcommand.
type command struct {
	flags      *pflag.FlagSet
	configPath *string
	index      *int
}

func (c *cli) newCommand(name string, withIndex bool) *command {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(c.stderr)
	cmd := &command{
		flags:      flagSet,
		configPath: flagSet.String("config", "", "path to the configuration file (default ~/.simpleice)"),
	}
	if withIndex {
		cmd.index = flagSet.IntP("index", "i", -1, "position of the ICE mail, as shown by list")
	}
	return cmd
}

// parse returns false and an exit code when the command should not run.
func (c *cli) parse(cmd *command, args []string) (bool, int) {
	if err := cmd.flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return false, exitOK
		}
		return false, exitUsage
	}
	if rest := cmd.flags.Args(); len(rest) > 0 {
		fmt.Fprintf(c.stderr, "unexpected argument: %s\n", rest[0])
		return false, exitUsage
	}
	if cmd.index != nil && *cmd.index < 0 {
		fmt.Fprintln(c.stderr, "--index is required (see simpleice list)")
		return false, exitUsage
	}
	return true, exitOK
}

// open loads the configuration and wires the service to the configured store.
// The returned cleanup must be called once the command is done.
func (c *cli) open(ctx context.Context, configPath string) (*app.IceService, func(), error) {
	path, err := config.ResolvePath(configPath)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil, fmt.Errorf("%w (you can create an empty configuration file using the `create-config` command)", err)
		}
		return nil, nil, err
	}
	logger.Init(cfg)
	log := logger.Get()

	var repo ice.Repository
	cleanup := func() {}
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { db.Close() }
		repo = idb.NewPostgresIceRepository(db, log)
	default:
		repo = storage.NewJSONFileRepository(cfg.StorePath, log)
	}
	log.Debugf("Using %s store", cfg.StoreDriver)

	svc := app.NewIceService(repo, log)
	if c.now != nil {
		svc.WithClock(c.now, nil)
	}
	return svc, cleanup, nil
}

// fail prints err in user terms and returns the exit code for it.
func (c *cli) fail(err error) int {
	switch {
	case errors.Is(err, app.ErrNoIces):
		fmt.Fprintln(c.stdout, "No ICE mails to show")
	case errors.Is(err, ice.ErrInvalidDateFormat):
		fmt.Fprintf(c.stderr, "Invalid date format, try again: %v\n", err)
	case errors.Is(err, ice.ErrDateNotInFuture):
		fmt.Fprintf(c.stderr, "Date cannot be in the past: %v\n", err)
	default:
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
	}
	return exitFailure
}

func (c *cli) createConfig(args []string) int {
	cmd := c.newCommand("create-config", false)
	if ok, code := c.parse(cmd, args); !ok {
		return code
	}
	path, err := config.ResolvePath(*cmd.configPath)
	if err != nil {
		return c.fail(err)
	}
	if err := config.WriteEmpty(path); err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.stdout, "Empty config file created in %s\n", path)
	return exitOK
}

func (c *cli) list(args []string) int {
	cmd := c.newCommand("list", false)
	if ok, code := c.parse(cmd, args); !ok {
		return code
	}
	ctx := context.Background()
	svc, cleanup, err := c.open(ctx, *cmd.configPath)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	ices, err := svc.List(ctx)
	if err != nil {
		return c.fail(err)
	}
	if len(ices) == 0 {
		fmt.Fprintln(c.stdout, "No ICE mails to show")
		return exitOK
	}
	for idx, i := range ices {
		fmt.Fprintf(c.stdout, "[%d] %s\n", idx, i.StatusLineWith(renderStatus))
	}
	return exitOK
}

func (c *cli) create(args []string) int {
	cmd := c.newCommand("new", false)
	description := cmd.flags.StringP("description", "d", "", "short description of the mail")
	message := cmd.flags.StringP("message", "m", "", "mail contents")
	messageFile := cmd.flags.String("message-file", "", "read the mail contents from a file (- for stdin)")
	if ok, code := c.parse(cmd, args); !ok {
		return code
	}

	body, _, err := c.readMessage(*message, *messageFile)
	if err != nil {
		return c.fail(err)
	}

	ctx := context.Background()
	svc, cleanup, err := c.open(ctx, *cmd.configPath)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	if _, err := svc.Create(ctx, *description, body); err != nil {
		if errors.Is(err, app.ErrEmptyDescription) || errors.Is(err, app.ErrEmptyMessage) {
			fmt.Fprintf(c.stderr, "%v. Aborting...\n", err)
			return exitFailure
		}
		return c.fail(err)
	}
	fmt.Fprintln(c.stdout, "New ICE mail created")
	return exitOK
}

func (c *cli) show(args []string) int {
	cmd := c.newCommand("show", true)
	if ok, code := c.parse(cmd, args); !ok {
		return code
	}
	ctx := context.Background()
	svc, cleanup, err := c.open(ctx, *cmd.configPath)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	i, err := svc.Get(ctx, *cmd.index)
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintln(c.stdout, i.StatusLineWith(renderStatus))
	fmt.Fprintln(c.stdout)
	fmt.Fprintf(c.stdout, "Recipients: %s\n", strings.Join(i.Recipients(), ","))
	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, i.Message())
	return exitOK
}

func (c *cli) edit(args []string) int {
	cmd := c.newCommand("edit", true)
	description := cmd.flags.StringP("description", "d", "", "new short description")
	message := cmd.flags.StringP("message", "m", "", "new mail contents")
	messageFile := cmd.flags.String("message-file", "", "read the new mail contents from a file (- for stdin)")
	recipients := cmd.flags.StringP("recipients", "r", "", "comma-separated recipients, replacing the current list")
	if ok, code := c.parse(cmd, args); !ok {
		return code
	}

	var req app.EditRequest
	if cmd.flags.Changed("description") {
		req.Description = description
	}
	body, set, err := c.readMessage(*message, *messageFile)
	if err != nil {
		return c.fail(err)
	}
	if set || cmd.flags.Changed("message") {
		req.Message = &body
	}
	if cmd.flags.Changed("recipients") {
		list := app.ParseRecipients(*recipients)
		req.Recipients = &list
	}

	ctx := context.Background()
	svc, cleanup, err := c.open(ctx, *cmd.configPath)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	edited, err := svc.Edit(ctx, *cmd.index, req)
	if err != nil {
		return c.fail(err)
	}
	if req.Description == nil && req.Message == nil && req.Recipients == nil {
		fmt.Fprintf(c.stdout, "Nothing to change for '%s'\n", edited.Description())
		return exitOK
	}
	fmt.Fprintln(c.stdout, "ICE mail updated")
	return exitOK
}

func (c *cli) activate(args []string) int {
	cmd := c.newCommand("activate", true)
	at := cmd.flags.String("at", "", "delivery date and time (yyyy-mm-dd HH:MM)")
	if ok, code := c.parse(cmd, args); !ok {
		return code
	}
	if *at == "" {
		fmt.Fprintln(c.stderr, "--at is required (yyyy-mm-dd HH:MM)")
		return exitUsage
	}

	ctx := context.Background()
	svc, cleanup, err := c.open(ctx, *cmd.configPath)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	activated, err := svc.Activate(ctx, *cmd.index, *at)
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.stdout, "ICE mail activated for %s\n", activated.FormattedDate())
	return exitOK
}

func (c *cli) deactivate(args []string) int {
	cmd := c.newCommand("deactivate", true)
	yes := cmd.flags.BoolP("yes", "y", false, "confirm the deactivation")
	if ok, code := c.parse(cmd, args); !ok {
		return code
	}

	ctx := context.Background()
	svc, cleanup, err := c.open(ctx, *cmd.configPath)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	target, err := svc.Get(ctx, *cmd.index)
	if err != nil {
		return c.fail(err)
	}
	if !target.IsActive() {
		fmt.Fprintln(c.stdout, "That ICE mail is not active")
		return exitOK
	}
	if !*yes {
		fmt.Fprintf(c.stdout, "Operation cancelled: pass --yes to deactivate '%s'\n", target.Description())
		return exitOK
	}

	if _, err := svc.Deactivate(ctx, *cmd.index); err != nil {
		if errors.Is(err, ice.ErrNotActive) {
			fmt.Fprintln(c.stdout, "That ICE mail is not active")
			return exitOK
		}
		return c.fail(err)
	}
	fmt.Fprintln(c.stdout, "ICE mail deactivated")
	return exitOK
}

func (c *cli) remove(args []string) int {
	cmd := c.newCommand("remove", true)
	yes := cmd.flags.BoolP("yes", "y", false, "confirm the removal")
	if ok, code := c.parse(cmd, args); !ok {
		return code
	}

	ctx := context.Background()
	svc, cleanup, err := c.open(ctx, *cmd.configPath)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	if !*yes {
		target, err := svc.Get(ctx, *cmd.index)
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintf(c.stdout, "Operation cancelled: pass --yes to remove '%s'\n", target.Description())
		return exitOK
	}

	removed, err := svc.Remove(ctx, *cmd.index)
	if err != nil {
		return c.fail(err)
	}
	fmt.Fprintf(c.stdout, "ICE mail '%s' removed\n", removed.Description())
	return exitOK
}

// check reports due mails. Sending them is not implemented yet.
func (c *cli) check(args []string) int {
	cmd := c.newCommand("check", false)
	if ok, code := c.parse(cmd, args); !ok {
		return code
	}
	ctx := context.Background()
	svc, cleanup, err := c.open(ctx, *cmd.configPath)
	if err != nil {
		return c.fail(err)
	}
	defer cleanup()

	due, err := svc.Due(ctx)
	if err != nil {
		return c.fail(err)
	}
	if len(due) == 0 {
		fmt.Fprintln(c.stdout, "No ICE mails are due")
		return exitOK
	}
	for _, d := range due {
		fmt.Fprintf(c.stdout, "[%d] %s -> %s\n", d.Index, d.Ice.StatusLineWith(renderStatus), strings.Join(d.Ice.Recipients(), ","))
	}
	return exitOK
}

// readMessage picks the message from --message or --message-file. The bool
// reports whether a file was given.
func (c *cli) readMessage(message, messageFile string) (string, bool, error) {
	if messageFile == "" {
		return message, false, nil
	}
	if message != "" {
		return "", true, fmt.Errorf("--message and --message-file are mutually exclusive")
	}
	var data []byte
	var err error
	if messageFile == "-" {
		data, err = io.ReadAll(c.stdin)
	} else {
		data, err = os.ReadFile(messageFile)
	}
	if err != nil {
		return "", true, fmt.Errorf("failed to read message: %w", err)
	}
	return string(data), true, nil
}
