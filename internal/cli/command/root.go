package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pagegate-go/internal/cli/connection"
	"github.com/yndnr/pagegate-go/internal/cli/output"
	"github.com/yndnr/pagegate-go/internal/infra/buildinfo"
)

// DefaultServer is used when neither --server nor PAGEGATE_SERVER is set.
const DefaultServer = "http://127.0.0.1:8080"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "pagegate-cli",
		Usage:   "Manage pagegate invitation tokens",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			TokenCommand(),
			PingCommand(),
			HashSecretCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "pagegate server URL",
			EnvVars: []string{"PAGEGATE_SERVER"},
			Value:   DefaultServer,
		},
		&cli.StringFlag{
			Name:    "secret",
			Usage:   "admin secret (the server must set cookies without Secure for plain http)",
			EnvVars: []string{"PAGEGATE_ADMIN_SECRET", "ADMIN_SECRET"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "per-request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

// GlobalFlags holds the flags shared by every command.
type GlobalFlags struct {
	Server  string
	Secret  string
	Output  string
	Timeout time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:  c.String("server"),
		Secret:  c.String("secret"),
		Output:  c.String("output"),
		Timeout: c.Duration("timeout"),
	}
}

var errNoSecret = errors.New("admin secret required: pass --secret or set PAGEGATE_ADMIN_SECRET")

// newClient creates an unauthenticated client.
func newClient(c *cli.Context) (*connection.Client, error) {
	flags := ParseGlobalFlags(c)
	return connection.NewClient(flags.Server, flags.Timeout)
}

// login creates a client holding a fresh admin session.
func login(c *cli.Context) (*connection.Client, error) {
	flags := ParseGlobalFlags(c)
	if flags.Secret == "" {
		return nil, errNoSecret
	}
	client, err := newClient(c)
	if err != nil {
		return nil, err
	}
	if err := client.Login(c.Context, flags.Secret); err != nil {
		if connection.IsCode(err, "invalid_secret") {
			return nil, errors.New("admin login failed: invalid secret")
		}
		return nil, fmt.Errorf("admin login: %w", err)
	}
	return client, nil
}

// logout ends the session opened by login. Failures are not fatal; the
// session expires on its own.
func logout(c *cli.Context, client *connection.Client) {
	if err := client.Logout(c.Context); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: admin logout: %v\n", err)
	}
}

// render writes data in the format selected by -o.
func render(c *cli.Context, data any) error {
	format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format).Format(c.App.Writer, data)
}
