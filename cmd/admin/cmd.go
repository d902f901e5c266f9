package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/bearshare/backend/internal/config"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = migrate           // mockable
	openStoreFunc    = openStore         // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	cfg    *config.Config
	logger zerolog.Logger
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  hash-secret                              - bcrypt a legacy admin secret for auth.admin_secret_hash")
	fmt.Fprintln(cli.out, "  migrate [-status]                        - apply pending migrations, or list the applied ones")
	fmt.Fprintln(cli.out, "  reconcile                                - recompute course member counts from memberships")
	fmt.Fprintln(cli.out, "  issue-token -subject ID [-admin] [-ttl D] - sign a development token with auth.jwt_secret")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	migrateCmd := flag.NewFlagSet("migrate", flag.ContinueOnError)
	migrateCmd.SetOutput(cli.out)
	migrateStatus := migrateCmd.Bool("status", false, "List applied migrations instead of applying pending ones.")

	issueTokenCmd := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	issueTokenCmd.SetOutput(cli.out)
	issueSubject := issueTokenCmd.String("subject", "", "The actor id the token is issued for.")
	issueAdmin := issueTokenCmd.Bool("admin", false, "Grant the configured admin role.")
	issueTTL := issueTokenCmd.Duration("ttl", time.Hour, "Token lifetime.")

	switch args[1] {
	case "hash-secret":
		fmt.Fprint(cli.out, "Enter admin secret:")
		secret, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(secret) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.hashSecret(string(secret))

	case "migrate":
		if err := migrateCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return migrateFunc(cli, *migrateStatus)

	case "reconcile":
		return cli.reconcile()

	case "issue-token":
		if err := issueTokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *issueSubject == "" {
			issueTokenCmd.Usage()
			return errHelp
		}
		return cli.issueToken(*issueSubject, *issueAdmin, *issueTTL)

	default:
		cli.printUsage()
		return errHelp
	}
}
