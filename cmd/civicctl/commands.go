package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/civicwatch/civic-reports/pkg/client"
)

// newFlags returns a sub-command flag set that reports errors instead of
// exiting.
func newFlags(a *app, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("civicctl "+name, pflag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func runRegister(ctx context.Context, a *app, args []string) error {
	var req client.RegisterRequest
	fs := newFlags(a, "register")
	fs.StringVar(&req.Name, "name", "", "display name")
	fs.StringVar(&req.Email, "email", "", "email address")
	fs.StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	fs.StringVar(&req.Role, "role", "", "requested role: user, employee or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if req.Password == "" {
		p, err := a.readPassword()
		if err != nil {
			return err
		}
		req.Password = p
	}

	res, err := a.client.Register(ctx, req)
	if err != nil {
		return err
	}
	return a.print(res.User)
}

func runLogin(ctx context.Context, a *app, args []string) error {
	var email, password string
	fs := newFlags(a, "login")
	fs.StringVar(&email, "email", "", "email address")
	fs.StringVar(&password, "password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if email == "" {
		return errors.New("--email is required")
	}
	if password == "" {
		p, err := a.readPassword()
		if err != nil {
			return err
		}
		password = p
	}

	res, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return a.print(res.User)
}

func runLogout(ctx context.Context, a *app, args []string) error {
	var revoke bool
	fs := newFlags(a, "logout")
	fs.BoolVar(&revoke, "revoke", false, "also ask the server to revoke the token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.client.Logout(ctx, revoke); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	if !a.client.Session().IsAuthenticated() {
		return client.ErrNotSignedIn
	}
	u, err := a.client.Me(ctx)
	if err != nil {
		if client.IsUnauthorized(err) {
			_ = a.client.Session().Clear()
			return errors.New("session expired, run civicctl login")
		}
		return err
	}
	return a.print(u)
}

func runUsers(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: civicctl users list | get <id> | update <id> [--name] [--email] [--role]")
	}

	switch args[0] {
	case "list":
		users, err := a.client.ListUsers(ctx)
		if err != nil {
			return err
		}
		return a.print(users)

	case "get":
		if len(args) != 2 {
			return errors.New("usage: civicctl users get <id>")
		}
		u, err := a.client.GetUser(ctx, args[1])
		if err != nil {
			return err
		}
		return a.print(u)

	case "update":
		if len(args) < 2 {
			return errors.New("usage: civicctl users update <id> [--name] [--email] [--role]")
		}
		fs := newFlags(a, "users update")
		name := fs.String("name", "", "new name")
		email := fs.String("email", "", "new email")
		role := fs.String("role", "", "new role")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}

		var update client.UserUpdate
		if fs.Changed("name") {
			update.Name = name
		}
		if fs.Changed("email") {
			update.Email = email
		}
		if fs.Changed("role") {
			update.Role = role
		}
		u, err := a.client.UpdateUser(ctx, args[1], update)
		if err != nil {
			return err
		}
		return a.print(u)
	}
	return fmt.Errorf("unknown users subcommand %q", args[0])
}

func runIssues(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: civicctl issues list | get <id> | create | status <id> <status>")
	}

	switch args[0] {
	case "list":
		var opts client.ListIssuesOptions
		var mine bool
		fs := newFlags(a, "issues list")
		fs.StringVar(&opts.Status, "status", "", "pending, analyzing, inProgress or resolved")
		fs.StringVar(&opts.Category, "category", "", "road, lighting, garbage, infrastructure or other")
		fs.IntVar(&opts.Page, "page", 1, "page number")
		fs.IntVar(&opts.Limit, "limit", 20, "page size (max 100)")
		fs.BoolVar(&mine, "mine", false, "only issues I reported")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if mine {
			id := a.client.Session().Identity()
			if id == nil {
				return client.ErrNotSignedIn
			}
			opts.UserID = id.ID
		}
		page, err := a.client.ListIssues(ctx, opts)
		if err != nil {
			return err
		}
		return a.print(page)

	case "get":
		if len(args) != 2 {
			return errors.New("usage: civicctl issues get <id>")
		}
		issue, err := a.client.GetIssue(ctx, args[1])
		if err != nil {
			return err
		}
		return a.print(issue)

	case "create":
		var req client.CreateIssueRequest
		fs := newFlags(a, "issues create")
		fs.StringVar(&req.Title, "title", "", "short title")
		fs.StringVar(&req.Description, "description", "", "what is wrong")
		fs.StringVar(&req.Category, "category", "other", "road, lighting, garbage, infrastructure or other")
		fs.Float64Var(&req.Location.Latitude, "lat", 0, "latitude")
		fs.Float64Var(&req.Location.Longitude, "lng", 0, "longitude")
		fs.StringVar(&req.Location.Address, "address", "", "street address")
		fs.StringSliceVar(&req.Images, "image", nil, "image reference (repeatable)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		issue, err := a.client.CreateIssue(ctx, req)
		if err != nil {
			return err
		}
		return a.print(issue)

	case "status":
		fs := newFlags(a, "issues status")
		note := fs.String("note", "", "note stored with the change")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 2 {
			return errors.New("usage: civicctl issues status <id> <status> [--note]")
		}
		if !a.client.Session().IsEmployee() {
			a.log.Warn().Msg("signed-in role is not staff; the server will likely refuse")
		}
		issue, err := a.client.UpdateIssueStatus(ctx, fs.Arg(0), fs.Arg(1), *note)
		if err != nil {
			return err
		}
		return a.print(issue)
	}
	return fmt.Errorf("unknown issues subcommand %q", args[0])
}

// readPassword prompts without echo on a terminal and reads a line otherwise.
func (a *app) readPassword() (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
