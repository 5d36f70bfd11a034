// civicctl is a command-line client for the civic reports API.
//
// The signed-in identity and token are kept in a session file (by default
// under the user config dir) so that "civicctl login" carries over to later
// invocations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/civicwatch/civic-reports/pkg/client"
	"github.com/civicwatch/civic-reports/pkg/logger"
	"github.com/civicwatch/civic-reports/pkg/session"
)

const defaultServer = "http://localhost:8080"

// app is what every command runs against.
type app struct {
	client *client.Client
	out    io.Writer
	in     io.Reader
	format string
	log    zerolog.Logger
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"register", "create an account and sign in", runRegister},
	{"login", "sign in and store the session", runLogin},
	{"logout", "forget the stored session", runLogout},
	{"whoami", "show the signed-in user as the server sees it", runWhoami},
	{"users", "admin: list | get <id> | update <id>", runUsers},
	{"issues", "list | get <id> | create | status <id> <status>", runIssues},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		server      string
		sessionPath string
		format      string
		verbose     bool
	)

	flags := pflag.NewFlagSet("civicctl", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.StringVarP(&server, "server", "s", envOr("CIVICCTL_SERVER", defaultServer), "API base URL")
	flags.StringVar(&sessionPath, "session", os.Getenv("CIVICCTL_SESSION"), "session file (default: <config dir>/civicctl/session.json)")
	flags.StringVarP(&format, "output", "o", "table", "output format: table, json or yaml")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")
	flags.Usage = func() { printUsage(stderr, flags) }

	if err := flags.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() == 0 {
		printUsage(stderr, flags)
		return errors.New("no command given")
	}
	switch format {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.Init(logger.Options{Level: level, Pretty: true, Output: stderr, Service: "civicctl"})

	if sessionPath == "" {
		p, err := session.DefaultPath()
		if err != nil {
			return err
		}
		sessionPath = p
	}
	state := session.New(session.NewFileStore(sessionPath))
	if id := state.Restore(); id != nil {
		log.Debug().Str("email", id.Email).Str("role", id.Role).Msg("session restored")
	}

	a := &app{
		client: client.New(server, client.WithSession(state)),
		out:    stdout,
		in:     stdin,
		format: format,
		log:    log,
	}

	name, rest := flags.Arg(0), flags.Args()[1:]
	for _, cmd := range commands {
		if cmd.name == name {
			log.Debug().Str("command", name).Str("server", server).Msg("running")
			return cmd.run(ctx, a, rest)
		}
	}
	printUsage(stderr, flags)
	return fmt.Errorf("unknown command %q", name)
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: civicctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, flags.FlagUsages())
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
