package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pagegate-go/internal/cli/output"
	"github.com/yndnr/pagegate-go/internal/core/service"
)

// Probe is the answer of /health or /ready.
type Probe struct {
	Status string `json:"status" yaml:"status"`
	Time   string `json:"time" yaml:"time"`
}

// PingResult reports the server probes.
type PingResult struct {
	Server string `json:"server" yaml:"server"`
	Health string `json:"health" yaml:"health"`
	Ready  string `json:"ready" yaml:"ready"`
}

func (p *PingResult) Table() *output.Table {
	t := output.NewTable("SERVER", "HEALTH", "READY")
	t.AddRow(p.Server, p.Health, p.Ready)
	return t
}

// PingCommand checks that the server is up and its store reachable.
func PingCommand() *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Check server health and readiness",
		Action: ping,
	}
}

func ping(c *cli.Context) error {
	client, err := newClient(c)
	if err != nil {
		return err
	}

	result := &PingResult{Server: client.BaseURL()}

	var health Probe
	if err := client.Get(c.Context, "/health", &health); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	result.Health = health.Status

	var ready Probe
	readyErr := client.Get(c.Context, "/ready", &ready)
	if readyErr != nil {
		result.Ready = "unavailable"
	} else {
		result.Ready = ready.Status
	}

	if err := render(c, result); err != nil {
		return err
	}
	if readyErr != nil {
		return cli.Exit(fmt.Sprintf("server not ready: %v", readyErr), 2)
	}
	return nil
}

// HashSecretCommand prints an argon2id PHC string for security.admin_secret.
func HashSecretCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-secret",
		Usage:     "Hash an admin secret for security.admin_secret",
		ArgsUsage: "[SECRET]  (read from stdin when omitted)",
		Action:    hashSecret,
	}
}

func hashSecret(c *cli.Context) error {
	secret := c.Args().First()
	if secret == "" {
		line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read secret: %w", err)
		}
		secret = strings.TrimRight(line, "\r\n")
	}
	if secret == "" {
		return errors.New("secret must not be empty")
	}

	hash, err := service.HashSecret(secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, hash)
	return nil
}
