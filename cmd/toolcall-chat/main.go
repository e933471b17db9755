// Command toolcall-chat is a terminal chat against a running tool server.
// Lines mentioning "weather" also fetch a weather report.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/olgasafonova/toolcall-mcp-server/client"
	"github.com/olgasafonova/toolcall-mcp-server/host"
	"github.com/olgasafonova/toolcall-mcp-server/internal/base"
)

var cli struct {
	Server string `help:"Tool server base URL" default:"http://localhost:3000"`
	Sender string `help:"Name to chat as" default:"User"`
}

func main() {
	_ = kong.Parse(&cli, kong.Description("Chat with the tool server. Type /quit to exit."))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	c := client.New(cli.Server, base.WithLogger(logger))
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session := host.NewSession(c)
	session.SetUsername(cli.Sender)

	if err := repl(ctx, session, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.Error("Chat ended", "error", err)
		os.Exit(1)
	}
}

func repl(ctx context.Context, session *host.Session, in io.Reader, out io.Writer) error {
	printEntry(out, session.Welcome())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "/quit" || line == "/exit" {
			return nil
		}

		entries, err := session.Send(ctx, line)
		if err != nil {
			return err
		}
		// the user's own line is already on screen
		for _, e := range entries[min(1, len(entries)):] {
			printEntry(out, e)
		}
	}
}

func printEntry(out io.Writer, e host.Entry) {
	fmt.Fprintf(out, "[%s %s] %s\n", e.Timestamp.Local().Format("15:04"), e.Sender, e.Message)
}
