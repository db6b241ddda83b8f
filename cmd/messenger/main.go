package main

import (
	"context"
	"flag"
	"fmt"
	"housing-chat/domain"
	"housing-chat/errors"
	"housing-chat/internal"
	"housing-chat/services"
	"housing-chat/storage"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

const usage = `usage:
  messenger send   -from <user> -to <user> -body <text>
  messenger thread -viewer <user> -with <user>
  messenger inbox  -user <user>`

func main() {
	code, err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
	os.Exit(code)
}

// run returns 2 for requests the user can correct and 1 for anything else.
func run(args []string, out io.Writer) (int, error) {
	if len(args) == 0 {
		return 2, fmt.Errorf("missing command\n%s", usage)
	}

	config, err := internal.LoadConfig()
	if err != nil {
		return 1, err
	}
	display, err := LoadDisplayConfig()
	if err != nil {
		return 1, fmt.Errorf("display config error: %w", err)
	}
	color.Enable = display.Colours
	log := logs.GetLoggerFromString(config.LogLevel)

	store, err := storage.Open(config, log)
	if err != nil {
		return 1, err
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &CLI{
		service: services.NewMessagingService(store.Messages, log, config.MaxContentLength),
		display: display,
		out:     out,
	}
	if err = cli.Dispatch(ctx, args[0], args[1:]); err != nil {
		if errors.IsValidation(err) {
			return 2, fmt.Errorf("invalid request: %w", err)
		}
		return 1, fmt.Errorf("request failed: %w", err)
	}
	return 0, nil
}

type CLI struct {
	service services.IMessagingService
	display DisplayConfig
	out     io.Writer
}

func (c *CLI) Dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "send":
		fs := flag.NewFlagSet("send", flag.ContinueOnError)
		from := fs.String("from", "", "authenticated sender")
		to := fs.String("to", "", "receiver")
		body := fs.String("body", "", "message text")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return c.Send(ctx, domain.ParticipantID(*from), domain.ParticipantID(*to), *body)
	case "thread":
		fs := flag.NewFlagSet("thread", flag.ContinueOnError)
		viewer := fs.String("viewer", "", "authenticated viewer")
		with := fs.String("with", "", "counterpart")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return c.Thread(ctx, domain.ParticipantID(*viewer), domain.ParticipantID(*with))
	case "inbox":
		fs := flag.NewFlagSet("inbox", flag.ContinueOnError)
		user := fs.String("user", "", "authenticated user")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return c.Inbox(ctx, domain.ParticipantID(*user))
	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func (c *CLI) Send(ctx context.Context, from, to domain.ParticipantID, body string) error {
	message, err := c.service.Send(ctx, from, to, body)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Message #%d sent to %s at %s\n",
		message.ID, message.ReceiverID, message.CreatedAt.Format(c.display.TimeFormat))
	return nil
}

// Thread shows the conversation and marks it read. Asking for a thread
// with yourself shows the inbox instead.
func (c *CLI) Thread(ctx context.Context, viewer, with domain.ParticipantID) error {
	if viewer != "" && viewer == with {
		return c.Inbox(ctx, viewer)
	}
	messages, err := c.service.OpenThread(ctx, viewer, with)
	if err != nil {
		return err
	}
	renderThread(c.out, c.display, viewer, messages)
	return nil
}

func (c *CLI) Inbox(ctx context.Context, user domain.ParticipantID) error {
	conversations, err := c.service.Inbox(ctx, user)
	if err != nil {
		return err
	}
	renderInbox(c.out, c.display, conversations)
	return nil
}
