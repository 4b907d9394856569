// Package interactive provides the interactive command-line interface
// for medkit-proxy.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/medkit-core/medkit-go/pkg/connection"
	"github.com/medkit-core/medkit-go/pkg/device"
	"github.com/medkit-core/medkit-go/pkg/resource"
	"github.com/medkit-core/medkit-go/pkg/wire"
)

// Values gives the shell access to cached resource values.
type Values interface {
	Get(deviceID, res string) (*resource.Cache, bool)
	Set(deviceID, res string, value wire.RawValue, at time.Time) *resource.Cache
	Resources(deviceID string) []string
}

// Shell handles interactive mode for medkit-proxy.
type Shell struct {
	cache  *device.Cache
	values Values
	rl     *readline.Instance
	out    io.Writer

	// Timeout bounds how long open and close wait for completion.
	Timeout time.Duration
}

// New creates a shell reading commands from the terminal.
func New(cache *device.Cache, values Values) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "medkit> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(cache, values, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(cache *device.Cache, values Values, out io.Writer) *Shell {
	return &Shell{
		cache:   cache,
		values:  values,
		out:     out,
		Timeout: 10 * time.Second,
	}
}

// Attach sets the device cache and value store the shell operates on.
func (s *Shell) Attach(cache *device.Cache, values Values) {
	s.cache = cache
	s.values = values
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use it for log output.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run reads commands until quit, EOF or ctx cancellation, then calls cancel.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Exec(line) {
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns false when the shell should exit.
func (s *Shell) Exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "devices", "list", "ls":
		s.cmdDevices()

	case "ports":
		s.cmdPorts(args)

	case "open", "o":
		s.cmdOpen(args)

	case "close", "c":
		s.cmdClose(args)

	case "values", "v":
		s.cmdValues(args)

	case "request", "req":
		s.cmdRequest(args)

	case "set":
		s.cmdSet(args)

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
medkit Proxy Commands:
  Devices:
    devices                         - List known devices
    ports <device-id>               - List a device's ports
    open <device-id>                - Open a connection
    close <device-id>               - Close the connection (and children)

  Resources:
    values <device-id>              - Show cached resource values
    request <device-id> <resource>  - Ask the device for a value
    set <device-id> <resource> <v>  - Write a value to the device

  General:
    help                            - Show this help
    quit                            - Exit`)
}

func (s *Shell) lookup(args []string, n int, usage string) (*device.Proxy, bool) {
	if len(args) < n {
		fmt.Fprintf(s.out, "Usage: %s\n", usage)
		return nil, false
	}
	p, ok := s.cache.Lookup(args[0])
	if !ok {
		fmt.Fprintf(s.out, "Unknown device: %s\n", args[0])
		return nil, false
	}
	return p, true
}

func (s *Shell) cmdDevices() {
	devices := s.cache.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(s.out, "No devices")
		return
	}

	fmt.Fprintf(s.out, "\nDevices (%d):\n", len(devices))
	fmt.Fprintln(s.out, "-------------------------------------------")
	for _, p := range devices {
		fmt.Fprintf(s.out, "  %s\n", p)
		if name := p.Info().Name; name != "" {
			fmt.Fprintf(s.out, "      Name: %s\n", name)
		}
		if parent := p.Parent(); parent != nil {
			fmt.Fprintf(s.out, "      Parent: %s\n", parent.Identifier())
		}
		fmt.Fprintf(s.out, "      Ports: %d  Reachable: %t  Open: %t\n",
			len(p.Ports()), p.Reachable(), p.Connection() != nil)
	}
}

func (s *Shell) cmdPorts(args []string) {
	p, ok := s.lookup(args, 1, "ports <device-id>")
	if !ok {
		return
	}
	ports := p.Ports()
	if len(ports) == 0 {
		fmt.Fprintln(s.out, "No ports")
		return
	}
	for _, f := range ports {
		fmt.Fprintf(s.out, "  %-32s priority=%d reachable=%t %s\n",
			f.Name(), f.Priority(), f.Reachable(), f.Address())
	}
}

// wait blocks until completion reports or the timeout elapses.
func (s *Shell) wait(start func(completion func(error))) (bool, error) {
	done := make(chan error, 1)
	start(func(err error) { done <- err })

	select {
	case err := <-done:
		return true, err
	case <-time.After(s.Timeout):
		return false, nil
	}
}

func (s *Shell) cmdOpen(args []string) {
	p, ok := s.lookup(args, 1, "open <device-id>")
	if !ok {
		return
	}
	done, err := s.wait(p.Open)
	switch {
	case !done:
		fmt.Fprintln(s.out, "Still opening...")
	case err != nil:
		fmt.Fprintf(s.out, "Open failed: %v\n", err)
	default:
		if c := p.Connection(); c != nil {
			fmt.Fprintf(s.out, "Opened %s (%s, conn %s)\n", p.Identifier(), c.Protocol(), c.ID())
		}
	}
}

func (s *Shell) cmdClose(args []string) {
	p, ok := s.lookup(args, 1, "close <device-id>")
	if !ok {
		return
	}
	done, err := s.wait(func(completion func(error)) { p.Close(nil, completion) })
	switch {
	case !done:
		fmt.Fprintln(s.out, "Still closing...")
	case err != nil:
		fmt.Fprintf(s.out, "Close failed: %v\n", err)
	default:
		fmt.Fprintf(s.out, "Closed %s\n", p.Identifier())
	}
}

func (s *Shell) cmdValues(args []string) {
	p, ok := s.lookup(args, 1, "values <device-id>")
	if !ok {
		return
	}
	names := s.values.Resources(p.Identifier())
	if len(names) == 0 {
		fmt.Fprintln(s.out, "No cached values")
		return
	}
	for _, name := range names {
		cache, _ := s.values.Get(p.Identifier(), name)
		fmt.Fprintf(s.out, "  %-24s %-16s (modified %s)\n",
			name, formatValue(cache.Value()), cache.TimeModified().Format(time.RFC3339))
	}
}

func (s *Shell) connection(p *device.Proxy) (*connection.Connection, bool) {
	c := p.Connection()
	if c == nil {
		fmt.Fprintf(s.out, "Device %s is not open\n", p.Identifier())
		return nil, false
	}
	return c, true
}

func (s *Shell) cmdRequest(args []string) {
	p, ok := s.lookup(args, 2, "request <device-id> <resource>")
	if !ok {
		return
	}
	c, ok := s.connection(p)
	if !ok {
		return
	}
	err := connection.SendMessage(c, &wire.Message{Kind: wire.KindRequest, Resource: args[1]})
	if err != nil {
		fmt.Fprintf(s.out, "Request failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Requested %s\n", args[1])
}

func (s *Shell) cmdSet(args []string) {
	p, ok := s.lookup(args, 3, "set <device-id> <resource> <value>")
	if !ok {
		return
	}
	c, ok := s.connection(p)
	if !ok {
		return
	}

	value, err := wire.EncodeValue(parseValue(strings.Join(args[2:], " ")))
	if err != nil {
		fmt.Fprintf(s.out, "Invalid value: %v\n", err)
		return
	}

	cache := s.values.Set(p.Identifier(), args[1], value, time.Now())
	err = connection.SendMessage(c, &wire.Message{
		Kind:     wire.KindUpdate,
		Resource: args[1],
		Time:     cache.TimeModified(),
		Value:    cache.Value(),
	})
	if err != nil {
		fmt.Fprintf(s.out, "Set failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Set %s = %s\n", args[1], formatValue(value))
}

// parseValue interprets a command-line value as an integer, float, bool or
// string, in that order.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func formatValue(raw wire.RawValue) string {
	if len(raw) == 0 {
		return "<none>"
	}
	var v any
	if err := wire.DecodeValue(raw, &v); err != nil {
		return fmt.Sprintf("<%d bytes>", len(raw))
	}
	return fmt.Sprintf("%v", v)
}
