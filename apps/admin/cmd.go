package main

import (
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/services/apiclient"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("this command needs the database storage (SESSION_STORAGE=database)")
)

type commandLine struct {
	db      *sqlx.DB // nil unless the database storage is configured
	backend core.StorageBackend
	api     *apiclient.Client
	clock   core.Clock
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]               - run a database migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  inspecttoken -token TOKEN            - decode a session token and tell whether it is still valid")
	fmt.Fprintln(cli.out, "  evict -client ID                     - clear everything persisted for a browser client")
	fmt.Fprintln(cli.out, "  purge -older-than DURATION           - delete client storage untouched for DURATION")
	fmt.Fprintln(cli.out, "  login -username USERNAME|EMAIL [-client ID] - sign in against the API, optionally seeding a client")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	inspectCmd := flag.NewFlagSet("inspecttoken", flag.ContinueOnError)
	inspectToken := inspectCmd.String("token", "", "The token to decode.")

	evictCmd := flag.NewFlagSet("evict", flag.ContinueOnError)
	evictClient := evictCmd.String("client", "", "The client ID (the value of the client cookie).")

	purgeCmd := flag.NewFlagSet("purge", flag.ContinueOnError)
	purgeOlderThan := purgeCmd.Duration("older-than", 0, "Minimum idle time of the purged clients, e.g. 720h.")

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginUname := loginCmd.String("username", "", "The user's username or email. The password will be prompted next.")
	loginClient := loginCmd.String("client", "", "Persist the token for this client ID.")

	for _, fs := range []*flag.FlagSet{inspectCmd, evictCmd, purgeCmd, loginCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "inspecttoken":
		if err := inspectCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *inspectToken == "" {
			inspectCmd.Usage()
			return errHelp
		}
		return cli.inspectToken(*inspectToken)
	case "evict":
		if err := evictCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *evictClient == "" {
			evictCmd.Usage()
			return errHelp
		}
		return cli.evict(*evictClient)
	case "purge":
		if err := purgeCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *purgeOlderThan <= 0 {
			purgeCmd.Usage()
			return errHelp
		}
		return cli.purge(*purgeOlderThan)
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(*loginUname, string(pwd), *loginClient)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) now() time.Time {
	if cli.clock == nil {
		return time.Now()
	}
	return cli.clock.Now()
}
