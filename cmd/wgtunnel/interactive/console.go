// Package interactive provides the interactive command-line interface
// for the wgtunnel daemon.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/bvweerd/wgtunnel/pkg/service"
	"github.com/bvweerd/wgtunnel/pkg/settings"
	"github.com/bvweerd/wgtunnel/pkg/stateful"
	"github.com/bvweerd/wgtunnel/pkg/wgkey"
)

// Console handles interactive mode for wgtunnel.
type Console struct {
	svc *service.TunnelService
	rl  *readline.Instance
	out io.Writer
}

// New creates a console. Attach a service with Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "wgtunnel> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc, svc *service.TunnelService) {
	defer c.rl.Close()
	c.svc = svc

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.Execute(line); quit {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the console should exit.
func (c *Console) Execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "status", "s":
		c.cmdStatus()

	case "show":
		c.cmdShow()

	case "set":
		c.cmdSet(args)

	case "restart":
		c.svc.RequestRestart()
		fmt.Fprintln(c.out, "Restart requested")

	case "genkey":
		c.cmdGenkey(args)

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
wgtunnel Commands:
  Tunnel:
    status             - Show tunnel status
    restart            - Restart the tunnel on the next tick

  Settings:
    show               - Show stored settings (secrets masked)
    set <key> <value>  - Change one setting
    genkey [apply]     - Generate a key pair (apply stores the private key)

  General:
    help               - Show this help
    quit               - Exit

  Keys:
    enabled private_key peer_public_key preshared_key address
    netmask endpoint port persistent_keepalive`)
}

func (c *Console) cmdStatus() {
	st := c.svc.Status()

	fmt.Fprintf(c.out, "State:       %s\n", st.State)
	fmt.Fprintf(c.out, "Enabled:     %t\n", st.Enabled)
	fmt.Fprintf(c.out, "Connected:   %t\n", st.Connected)
	if st.Endpoint != "" {
		fmt.Fprintf(c.out, "Endpoint:    %s\n", st.Endpoint)
	}
	if st.Address != "" {
		fmt.Fprintf(c.out, "Address:     %s\n", st.Address)
	}
	if st.PublicKey != "" {
		fmt.Fprintf(c.out, "Public key:  %s\n", st.PublicKey)
	}
	if st.LatestHandshake != 0 {
		ts := time.Unix(st.LatestHandshake, 0)
		fmt.Fprintf(c.out, "Handshake:   %s (%s ago)\n", ts.Format(time.RFC3339), time.Since(ts).Truncate(time.Second))
	} else {
		fmt.Fprintln(c.out, "Handshake:   none")
	}
	if st.SessionID != "" {
		fmt.Fprintf(c.out, "Session:     %s\n", st.SessionID)
	}
	if c.svc.RestartPending() {
		fmt.Fprintln(c.out, "Restart:     pending")
	}
}

func (c *Console) cmdShow() {
	cfg := c.svc.Store().Get().Redacted()

	fmt.Fprintf(c.out, "%-22s %t\n", settings.KeyEnabled, cfg.Enabled)
	fmt.Fprintf(c.out, "%-22s %s\n", settings.KeyPrivateKey, cfg.PrivateKey)
	fmt.Fprintf(c.out, "%-22s %s\n", settings.KeyPeerPublicKey, cfg.PeerPublicKey)
	fmt.Fprintf(c.out, "%-22s %s\n", settings.KeyPresharedKey, cfg.PresharedKey)
	fmt.Fprintf(c.out, "%-22s %s\n", settings.KeyAddress, cfg.Address)
	fmt.Fprintf(c.out, "%-22s %s\n", settings.KeyNetmask, cfg.Netmask)
	fmt.Fprintf(c.out, "%-22s %s\n", settings.KeyEndpoint, cfg.Endpoint)
	fmt.Fprintf(c.out, "%-22s %d\n", settings.KeyPort, cfg.Port)
	fmt.Fprintf(c.out, "%-22s %d\n", settings.KeyPersistentKeepalive, cfg.PersistentKeepalive)
}

func (c *Console) cmdSet(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: set <key> <value>")
		return
	}

	key := args[0]
	raw := strings.Join(args[1:], " ")
	value, err := parseValue(key, raw)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	result, err := c.svc.SetSetting(key, value, service.SourceConsole)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.printResult(result)
}

func (c *Console) cmdGenkey(args []string) {
	priv, err := wgkey.Generate()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	pub, err := priv.PublicKey()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}

	if len(args) > 0 && strings.ToLower(args[0]) == "apply" {
		result, err := c.svc.SetSetting(settings.KeyPrivateKey, priv.String(), service.SourceConsole)
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(c.out, "Public key:  %s\n", pub)
		c.printResult(result)
		return
	}

	fmt.Fprintf(c.out, "Private key: %s\n", priv)
	fmt.Fprintf(c.out, "Public key:  %s\n", pub)
}

func (c *Console) printResult(result stateful.UpdateResult) {
	switch result {
	case stateful.Unchanged:
		fmt.Fprintln(c.out, "Unchanged")
	case stateful.ChangedRestart:
		fmt.Fprintln(c.out, "Saved, tunnel restart pending")
	default:
		fmt.Fprintln(c.out, "Saved, applied at next restart")
	}
}

// parseValue converts raw to the type stored under key.
func parseValue(key, raw string) (any, error) {
	switch key {
	case settings.KeyEnabled:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: expected true or false", key)
		}
		return b, nil
	case settings.KeyPort, settings.KeyPersistentKeepalive:
		n, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%s: expected 0-65535", key)
		}
		return uint16(n), nil
	default:
		return raw, nil
	}
}
