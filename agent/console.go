package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/office-mas/office-multi-agent/protocol"
	"github.com/office-mas/office-multi-agent/types"
)

// ConsoleRole bridges a human at a terminal into the conversation
// engine. Inbound messages are printed, and a small command set sends
// outbound ones.
type ConsoleRole struct {
	In  io.Reader // defaults to stdin
	Out io.Writer // defaults to stdout

	// Quit is closed when the user types quit.
	Quit chan struct{}
}

func (c *ConsoleRole) Name() string { return "human" }

const consoleHelp = `commands:
  help                          this text
  registry                      list known agents
  who <need text>               pick the best agent for a need
  say <text>                    route a REQUEST by its text
  json <to> <perf> <text>       send a JSON ACL message
  classic <to> <perf> <text>    send a legacy metadata message
  reply <cid> <perf> <text>     answer a conversation in its own wire mode
  quit                          exit`

func (c *ConsoleRole) Start(ctx context.Context, a *BaseAgent) {
	if c.In == nil {
		c.In = os.Stdin
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Quit == nil {
		c.Quit = make(chan struct{})
	}
	go c.readLoop(ctx, a)
}

func (c *ConsoleRole) HandleACL(ctx context.Context, a *BaseAgent, incoming *types.AclMessage, from string) (*types.AclMessage, bool, error) {
	fmt.Fprintf(c.Out, "\n[%s] %s cid=%s: %s\n> ", from, incoming.Performative, incoming.ConversationID, incoming.Text())
	return nil, true, nil
}

func (c *ConsoleRole) readLoop(ctx context.Context, a *BaseAgent) {
	scanner := bufio.NewScanner(c.In)
	fmt.Fprintf(c.Out, "%s\n> ", consoleHelp)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(c.Out, "> ")
			continue
		}
		if c.dispatch(ctx, a, line) {
			return
		}
		fmt.Fprint(c.Out, "> ")
	}
}

// dispatch runs one command line; true means quit.
func (c *ConsoleRole) dispatch(ctx context.Context, a *BaseAgent, line string) bool {
	cmd, rest := splitWord(line)
	switch strings.ToLower(cmd) {
	case "quit", "exit":
		close(c.Quit)
		return true

	case "help":
		fmt.Fprintln(c.Out, consoleHelp)

	case "registry":
		for _, alias := range a.Registry().Aliases() {
			d, _ := a.Registry().Lookup(alias)
			fmt.Fprintf(c.Out, "  %-12s %-12s %s  %s\n", alias, d.Role, d.Endpoint, d.Character)
		}

	case "who":
		if rest == "" {
			fmt.Fprintln(c.Out, "usage: who <need text>")
			break
		}
		alias := a.Route(ctx, rest)
		if alias == "" {
			fmt.Fprintln(c.Out, "no matching agent")
		} else {
			fmt.Fprintf(c.Out, "-> %s\n", alias)
		}

	case "say":
		if rest == "" {
			fmt.Fprintln(c.Out, "usage: say <text>")
			break
		}
		to := a.Route(ctx, rest)
		if to == "" {
			fmt.Fprintln(c.Out, "no matching agent")
			break
		}
		cid := protocol.NewConversationID("say")
		m, err := protocol.BuildMessage(string(types.PerformativeRequest), cid, protocol.BuildOptions{
			Text:    rest,
			ReplyBy: protocol.EnsureReplyBy(""),
		})
		if err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
			break
		}
		if err := a.SendACL(ctx, m, to); err == nil {
			fmt.Fprintf(c.Out, "sent REQUEST cid=%s to %s\n", cid, to)
		}

	case "json":
		to, perf, text, ok := threeArgs(rest)
		if !ok {
			fmt.Fprintln(c.Out, "usage: json <to> <perf> <text>")
			break
		}
		m, err := protocol.BuildMessage(perf, protocol.NewConversationID("man"), protocol.BuildOptions{Text: text})
		if err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
			break
		}
		if err := a.SendACL(ctx, m, to); err == nil {
			fmt.Fprintf(c.Out, "sent %s cid=%s to %s\n", m.Performative, m.ConversationID, to)
		}

	case "classic":
		to, perf, text, ok := threeArgs(rest)
		if !ok {
			fmt.Fprintln(c.Out, "usage: classic <to> <perf> <text>")
			break
		}
		cid := protocol.NewConversationID("man")
		if err := a.SendClassic(ctx, to, perf, cid, text); err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
		} else {
			fmt.Fprintf(c.Out, "sent classic %s cid=%s to %s\n", strings.ToUpper(perf), cid, to)
		}

	case "reply":
		cid, perf, text, ok := threeArgs(rest)
		if !ok {
			fmt.Fprintln(c.Out, "usage: reply <cid> <perf> <text>")
			break
		}
		to, found := a.LastSender(cid)
		if !found {
			fmt.Fprintln(c.Out, "unknown conversation")
			break
		}
		var err error
		if a.LastWireMode(cid) == WireModeClassic {
			err = a.SendClassic(ctx, to, perf, cid, text)
		} else {
			var m *types.AclMessage
			m, err = protocol.BuildMessage(perf, cid, protocol.BuildOptions{Text: text})
			if err == nil {
				err = a.SendACL(ctx, m, to)
			}
		}
		if err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
		} else {
			fmt.Fprintf(c.Out, "replied %s cid=%s to %s\n", strings.ToUpper(perf), cid, to)
		}

	default:
		fmt.Fprintf(c.Out, "unknown command %q, try help\n", cmd)
	}
	return false
}

func splitWord(s string) (head, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

func threeArgs(s string) (first, second, rest string, ok bool) {
	first, s = splitWord(s)
	second, rest = splitWord(s)
	if first == "" || second == "" || rest == "" {
		return "", "", "", false
	}
	return first, second, rest, true
}
