// Command useradmin manages accounts directly in the database.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"paycheck-tracker/internal/config"
	"paycheck-tracker/internal/models"
	"paycheck-tracker/internal/storage"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := &cli.App{
		Name:      "useradmin",
		Usage:     "manage paycheck-tracker users",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "driver",
				Value:   storage.DriverSQLite,
				Usage:   "database driver (sqlite or postgres)",
				EnvVars: []string{"DB_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "db",
				Value:   "./data/paycheck.db",
				Usage:   "sqlite database file",
				EnvVars: []string{"DB_PATH"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "postgres connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "create a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "username", Required: true},
					&cli.StringFlag{Name: "email", Usage: "email address", Required: true},
					&cli.StringFlag{Name: "password", Usage: "password (prompted for when omitted)"},
					&cli.StringFlag{Name: "first-name", Usage: "first name"},
					&cli.StringFlag{Name: "phone", Usage: "phone number"},
				},
				Action: addUser,
			},
			{
				Name:   "disable",
				Usage:  "refuse logins for a user",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "user", Usage: "username", Required: true}},
				Action: setDisabled(true),
			},
			{
				Name:   "enable",
				Usage:  "allow logins for a disabled user",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "user", Usage: "username", Required: true}},
				Action: setDisabled(false),
			},
		},
	}
	return app.RunContext(context.Background(), append([]string{app.Name}, args...))
}

// openDB picks the DSN by driver the same way the server does.
func openDB(c *cli.Context) (*storage.DB, error) {
	cfg := &config.Config{
		DBDriver:    c.String("driver"),
		DBPath:      c.String("db"),
		DatabaseURL: c.String("database-url"),
	}
	db, err := storage.Open(c.Context, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func addUser(c *cli.Context) error {
	out := c.App.Writer
	username := c.String("user")

	password := c.String("password")
	if password == "" {
		fmt.Fprint(out, "Password: ")
		var err error
		password, err = readPassword(c.App.Reader)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(out) // Print newline after password input
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	fields := map[string]any{
		"username": username,
		"email":    c.String("email"),
		"password": password,
	}
	if c.IsSet("first-name") {
		fields["first_name"] = c.String("first-name")
	}
	if c.IsSet("phone") {
		fields["phone_number"] = c.String("phone")
	}
	p, err := models.NewPatch(fields)
	if err != nil {
		return err
	}
	in, err := models.NewUserIn(p, nil)
	if err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	u, err := models.NewUser(in)
	if err != nil {
		return err
	}

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	created, err := db.CreateUser(c.Context, u)
	if errors.Is(err, storage.ErrUniqueness) {
		return fmt.Errorf("user %s already exists: %w", username, err)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(out, "User %s created successfully with ID %d\n", created.Username, created.ID)
	return nil
}

func setDisabled(disabled bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := openDB(c)
		if err != nil {
			return err
		}
		defer db.Close()

		username := c.String("user")
		err = db.SetUserDisabled(c.Context, username, disabled)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("user %s does not exist", username)
		}
		if err != nil {
			return err
		}

		state := "enabled"
		if disabled {
			state = "disabled"
		}
		fmt.Fprintf(c.App.Writer, "User %s %s\n", username, state)
		return nil
	}
}

func readPassword(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
