package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/atinyakov/studysync/internal/models"
)

var errHelp = errors.New("help provided")

// roleSetter changes a user's role by email.
type roleSetter interface {
	SetRole(ctx context.Context, email string, role models.Role) error
}

type commandLine struct {
	roles roleSetter
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  promote -email EMAIL - grant the admin role")
	fmt.Fprintln(cli.out, "  demote -email EMAIL  - revoke the admin role")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	var role models.Role
	switch args[1] {
	case "promote":
		role = models.RoleAdmin
	case "demote":
		role = models.RoleUser
	default:
		cli.printUsage()
		return errHelp
	}

	cmd := flag.NewFlagSet(args[1], flag.ContinueOnError)
	cmd.SetOutput(cli.out)
	email := cmd.String("email", "", "The user's email.")
	if err := cmd.Parse(args[2:]); err != nil {
		return err
	}
	if *email == "" {
		cmd.Usage()
		return errHelp
	}

	if err := cli.roles.SetRole(context.Background(), *email, role); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("no user with email %q", *email)
		}
		return err
	}
	fmt.Fprintf(cli.out, "%s is now %s\n", *email, role)
	return nil
}
