// Command bflctl performs account administration against the BFL database
// directly. It reads the same environment as the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/billedfitness/bfl/internal/fitlog/app"
	"github.com/billedfitness/bfl/internal/fitlog/service"
	"github.com/billedfitness/bfl/internal/fitlog/store"
	"github.com/billedfitness/bfl/pkg/cryptox"
)

const usage = `usage: bflctl [-db file] <command> <username>

commands:
  activate        allow the user to log in again
  deactivate      block the user and end their sessions
  promote         grant admin rights
  demote          revoke admin rights
  reset-password  set and print a new random password
`

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	fs := flag.NewFlagSet("bflctl", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	fs.StringVar(&cfg.DatabaseFile, "db", cfg.DatabaseFile, "SQLite database file")
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() != 2 {
		fs.Usage()
		os.Exit(2)
	}

	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		log.Fatalf("failed to load pepper: %v", err)
	}
	db, err := app.OpenStore(cfg.DatabaseFile)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	admin := &service.AdminService{Store: db}
	if err := run(context.Background(), admin, fs.Arg(0), fs.Arg(1), os.Stdout); err != nil {
		db.Close()
		log.Fatal(err)
	}
}

var errUnknownCommand = errors.New("unknown command")

func run(ctx context.Context, admin *service.AdminService, cmd, username string, out io.Writer) error {
	var err error
	switch cmd {
	case "activate":
		err = admin.SetActive(ctx, username, true)
	case "deactivate":
		err = admin.SetActive(ctx, username, false)
	case "promote":
		err = admin.SetAdmin(ctx, username, true)
	case "demote":
		err = admin.SetAdmin(ctx, username, false)
	case "reset-password":
		var password string
		password, err = admin.ResetPassword(ctx, username)
		if err == nil {
			fmt.Fprintf(out, "new password for %s: %s\n", username, password)
			return nil
		}
	default:
		return fmt.Errorf("%w %q", errUnknownCommand, cmd)
	}

	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no user named %q", username)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", cmd, username, err)
	}
	fmt.Fprintf(out, "%s: %s\n", cmd, username)
	return nil
}
