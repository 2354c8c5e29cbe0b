package command

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pagegate-go/internal/cli/output"
	"github.com/yndnr/pagegate-go/pkg/token"
)

const tokensPath = "/api/admin/tokens"

// Token is one invitation token as reported by the server.
type Token struct {
	Key         string `json:"key" yaml:"key"`
	Active      bool   `json:"active" yaml:"active"`
	Used        bool   `json:"used" yaml:"used"`
	ExpiresAt   *int64 `json:"expiresAt" yaml:"expiresAt"`
	ExpiresInMs *int64 `json:"expiresInMs" yaml:"expiresInMs"`
}

// TokenList is one or more pages of token list results.
type TokenList struct {
	Items        []Token `json:"items" yaml:"items"`
	ListComplete bool    `json:"list_complete" yaml:"list_complete"`
	Cursor       *string `json:"cursor" yaml:"cursor"`
}

func (l *TokenList) Table() *output.Table {
	t := output.NewTable("KEY", "ACTIVE", "USED", "EXPIRES AT", "EXPIRES IN")
	for _, tok := range l.Items {
		t.AddRow(tok.Key, yesNo(tok.Active), yesNo(tok.Used), formatMillisTime(tok.ExpiresAt), formatMillisDuration(tok.ExpiresInMs))
	}
	if !l.ListComplete && l.Cursor != nil {
		t.Footer = "more results: --cursor " + *l.Cursor
	}
	return t
}

func (tok *Token) Table() *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	t.AddRow("key", tok.Key)
	t.AddRow("active", yesNo(tok.Active))
	t.AddRow("used", yesNo(tok.Used))
	t.AddRow("expires at", formatMillisTime(tok.ExpiresAt))
	t.AddRow("expires in", formatMillisDuration(tok.ExpiresInMs))
	return t
}

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	expiryFlags := []cli.Flag{
		&cli.Float64Flag{
			Name:  "minutes",
			Usage: "session lifetime after redemption, in minutes (wins over --days)",
		},
		&cli.Float64Flag{
			Name:  "days",
			Usage: "session lifetime after redemption, in days",
		},
	}

	return &cli.Command{
		Name:    "token",
		Aliases: []string{"tok"},
		Usage:   "Manage invitation tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tokens",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prefix", Aliases: []string{"p"}, Usage: "only keys starting with prefix"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "page size (server caps at 200)"},
					&cli.StringFlag{Name: "cursor", Usage: "continue a previous listing"},
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "follow cursors until the listing is complete"},
				},
				Action: tokenList,
			},
			{
				Name:      "create",
				Usage:     "Create a token",
				ArgsUsage: "[KEY]",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "generate", Aliases: []string{"g"}, Usage: "generate a random key"},
					&cli.StringFlag{Name: "prefix", Usage: "prefix for a generated key"},
					&cli.BoolFlag{Name: "inactive", Usage: "create the token disabled"},
				}, expiryFlags...),
				Action: tokenCreate,
			},
			{
				Name:      "update",
				Usage:     "Change a token",
				ArgsUsage: "KEY",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "active", Usage: "enable or disable (--active=false)"},
					&cli.BoolFlag{Name: "used", Usage: "mark used or reset (--used=false)"},
					&cli.BoolFlag{Name: "clear-expiry", Usage: "remove the session lifetime"},
				}, expiryFlags...),
				Action: tokenUpdate,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a token",
				ArgsUsage: "KEY",
				Action:    tokenDelete,
			},
		},
	}
}

func tokenList(c *cli.Context) error {
	client, err := login(c)
	if err != nil {
		return err
	}
	defer logout(c, client)

	q := url.Values{}
	if p := c.String("prefix"); p != "" {
		q.Set("prefix", p)
	}
	if l := c.Int("limit"); l > 0 {
		q.Set("limit", strconv.Itoa(l))
	}
	cursor := c.String("cursor")

	result := &TokenList{Items: []Token{}}
	for {
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var page TokenList
		if err := client.Get(c.Context, tokensPath+"?"+q.Encode(), &page); err != nil {
			return fmt.Errorf("list tokens: %w", err)
		}
		result.Items = append(result.Items, page.Items...)
		result.ListComplete = page.ListComplete
		result.Cursor = page.Cursor

		if !c.Bool("all") || page.ListComplete || page.Cursor == nil {
			break
		}
		cursor = *page.Cursor
	}

	return render(c, result)
}

func tokenCreate(c *cli.Context) error {
	key := c.Args().First()
	switch {
	case c.Bool("generate") && key != "":
		return fmt.Errorf("pass either KEY or --generate, not both")
	case c.Bool("generate"):
		generated, err := token.Generate(c.String("prefix"))
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		key = generated
	case key == "":
		return fmt.Errorf("KEY is required (or use --generate)")
	}

	body := map[string]any{"key": key}
	if c.Bool("inactive") {
		body["active"] = false
	}
	addExpiry(c, body)

	client, err := login(c)
	if err != nil {
		return err
	}
	defer logout(c, client)

	var created Token
	if err := client.Post(c.Context, tokensPath, body, &created); err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return render(c, &created)
}

func tokenUpdate(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return fmt.Errorf("KEY is required")
	}

	body := map[string]any{}
	if c.IsSet("active") {
		body["active"] = c.Bool("active")
	}
	if c.IsSet("used") {
		body["used"] = c.Bool("used")
	}
	if c.Bool("clear-expiry") {
		body["expiresInMinutes"] = nil
	} else {
		addExpiry(c, body)
	}

	client, err := login(c)
	if err != nil {
		return err
	}
	defer logout(c, client)

	var updated Token
	if err := client.Patch(c.Context, tokensPath+"?key="+url.QueryEscape(key), body, &updated); err != nil {
		return fmt.Errorf("update token: %w", err)
	}
	return render(c, &updated)
}

func tokenDelete(c *cli.Context) error {
	key := c.Args().First()
	if key == "" {
		return fmt.Errorf("KEY is required")
	}

	client, err := login(c)
	if err != nil {
		return err
	}
	defer logout(c, client)

	var deleted struct {
		OK  bool   `json:"ok" yaml:"ok"`
		Key string `json:"key" yaml:"key"`
	}
	if err := client.Delete(c.Context, tokensPath+"?key="+url.QueryEscape(key), &deleted); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	if format, _ := output.ParseFormat(ParseGlobalFlags(c).Output); format == output.FormatTable {
		fmt.Fprintf(c.App.Writer, "deleted %s\n", deleted.Key)
		return nil
	}
	return render(c, deleted)
}

func addExpiry(c *cli.Context, body map[string]any) {
	if c.IsSet("minutes") {
		body["expiresInMinutes"] = c.Float64("minutes")
	}
	if c.IsSet("days") {
		body["expiresInDays"] = c.Float64("days")
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatMillisTime(ms *int64) string {
	if ms == nil {
		return ""
	}
	return time.UnixMilli(*ms).UTC().Format(time.RFC3339)
}

func formatMillisDuration(ms *int64) string {
	if ms == nil {
		return ""
	}
	return (time.Duration(*ms) * time.Millisecond).String()
}
