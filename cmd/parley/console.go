// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bureau-foundation/parley/engine"
)

const consoleHelp = `commands:
  /new              start a new conversation
  /switch <id>      load a conversation
  /abort            stop the reply in progress
  /list             list conversations
  /find <pattern>   fuzzy-filter conversations by title
  /search <query>   full-text search across conversations
  /delete <id>      delete a conversation
  /items            show work items
  /help             show this help
  /quit             exit
anything else is sent as a message`

// errQuit ends the console loop without an error.
var errQuit = errors.New("quit")

// command is one parsed slash command.
type command struct {
	name string
	arg  string
}

// parseCommand splits a "/name arg" line. The second result is false
// for lines that are chat messages.
func parseCommand(line string) (command, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		return command{}, false
	}
	name, arg, _ := strings.Cut(trimmed[1:], " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

// console reads commands from in and renders engine changes to out.
type console struct {
	engine   *engine.Engine
	in       io.Reader
	out      io.Writer
	prompt   bool
	renderer *renderer
}

func newConsole(eng *engine.Engine, in io.Reader, out io.Writer, interactive bool) *console {
	return &console{
		engine:   eng,
		in:       in,
		out:      out,
		prompt:   interactive,
		renderer: newRenderer(out),
	}
}

// Run processes input until EOF, /quit, or cancellation of ctx.
func (c *console) Run(ctx context.Context) error {
	changes := c.engine.Subscribe()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	if err := c.refresh(ctx); err != nil {
		return err
	}
	c.showPrompt()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case <-changes:
			if err := c.refresh(ctx); err != nil {
				return err
			}
		case line := <-lines:
			err := c.handle(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(c.out, "error: %v\n", err)
			}
			c.showPrompt()
		}
	}
}

func (c *console) showPrompt() {
	if c.prompt && !c.renderer.midLine {
		io.WriteString(c.out, "> ")
	}
}

func (c *console) refresh(ctx context.Context) error {
	view, err := c.engine.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, engine.ErrStopped) {
			return nil
		}
		return err
	}
	c.renderer.render(view)
	return nil
}

func (c *console) handle(ctx context.Context, line string) error {
	cmd, isCommand := parseCommand(line)
	if !isCommand {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		accepted, err := c.engine.SendMessage(ctx, line)
		if err != nil {
			return err
		}
		if !accepted {
			view, err := c.engine.Snapshot(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, rejectedSendNotice(view))
		}
		return nil
	}

	switch cmd.name {
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprintln(c.out, consoleHelp)
	case "new":
		return c.engine.NewSession(ctx)
	case "switch":
		if cmd.arg == "" {
			return fmt.Errorf("usage: /switch <conversation id>")
		}
		started, err := c.engine.SwitchConversation(ctx, cmd.arg)
		if err != nil {
			return err
		}
		if !started {
			fmt.Fprintf(c.out, "%s is already active\n", cmd.arg)
		}
	case "abort":
		return c.engine.Abort(ctx)
	case "list":
		if err := c.engine.RefreshConversations(ctx); err != nil {
			return err
		}
		view, err := c.engine.Snapshot(ctx)
		if err != nil {
			return err
		}
		writeConversations(c.out, view.ConversationID, view.Conversations)
	case "find":
		matches, err := c.engine.FilterConversations(ctx, cmd.arg)
		if err != nil {
			return err
		}
		view, err := c.engine.Snapshot(ctx)
		if err != nil {
			return err
		}
		writeConversations(c.out, view.ConversationID, matches)
	case "search":
		if cmd.arg == "" {
			return fmt.Errorf("usage: /search <query>")
		}
		results := c.engine.Search(ctx, cmd.arg)
		if len(results) == 0 {
			fmt.Fprintln(c.out, "no results")
		}
		for _, result := range results {
			fmt.Fprintf(c.out, "%s  %s: %s\n", result.ConversationID, sanitize(result.Title), sanitize(result.Snippet))
		}
	case "delete":
		if cmd.arg == "" {
			return fmt.Errorf("usage: /delete <conversation id>")
		}
		if err := c.engine.DeleteConversation(ctx, cmd.arg); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "deleted %s\n", cmd.arg)
	case "items":
		view, err := c.engine.Snapshot(ctx)
		if err != nil {
			return err
		}
		writeWorkItems(c.out, view)
	default:
		return fmt.Errorf("unknown command /%s (try /help)", cmd.name)
	}
	return nil
}

// rejectedSendNotice explains why a message was not sent.
func rejectedSendNotice(view engine.View) string {
	if view.PendingSwitch != "" {
		return fmt.Sprintf("still loading conversation %s; send again once it opens", view.PendingSwitch)
	}
	return "a reply is still streaming; /abort to stop it"
}
