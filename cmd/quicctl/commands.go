package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/mitchellh/colorstring"
	"github.com/schollz/progressbar/v3"

	"quicore.dev/quicore/internal/wire"
	"quicore.dev/quicore/util/logger"
)

// handleConnect registers a peer connection at host:port. Usage: connect <host:port>
func (s *session) handleConnect(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: connect <host:port>")
		return
	}

	remote, err := net.ResolveUDPAddr("udp4", args[0])
	if err != nil {
		colorstring.Println("[red]invalid address: " + err.Error())
		return
	}

	s.connectTo(remote)
	colorstring.Println("[green]connected to " + remote.String())
}

// handleSend sends one STREAM frame of text to a peer already registered
// with connect. Usage: send <host:port> <text...>
func (s *session) handleSend(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: send <host:port> <text>")
		return
	}

	pc, ok := s.get(args[0])
	if !ok {
		colorstring.Println("[red]no connection to " + args[0] + ", run connect first")
		return
	}

	data := []byte(joinArgs(args[1:]))
	frame := &wire.StreamFrame{StreamID: 0, Offset: 0, Data: data}
	if err := pc.conn.SendFrames(pickLevel(pc), []wire.Frame{frame}); err != nil {
		colorstring.Println("[red]send failed: " + err.Error())
	}
}

// handleSoak bulk-sends count small STREAM frames to a peer, showing a
// progress bar.
// Usage: soak <host:port> <count>
func (s *session) handleSoak(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: soak <host:port> <count>")
		return
	}

	pc, ok := s.get(args[0])
	if !ok {
		colorstring.Println("[red]no connection to " + args[0] + ", run connect first")
		return
	}

	count, err := strconv.Atoi(args[1])
	if err != nil || count <= 0 {
		fmt.Println("count must be a positive integer")
		return
	}

	bar := progressbar.NewOptions(count,
		progressbar.OptionSetDescription(fmt.Sprintf("soaking %s", args[0])),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)

	level := pickLevel(pc)
	for i := 0; i < count; i++ {
		frame := &wire.StreamFrame{StreamID: 1, Offset: uint64(i), Data: []byte(strconv.Itoa(i))}
		if err := pc.conn.SendFrames(level, []wire.Frame{frame}); err != nil {
			logger.Warnf("soak send %d failed: %v", i, err)
		}
		bar.Add(1)
	}
}

// handleStats prints each peer's LargestAcked watermark and connection
// phase. It does not list in-flight packet numbers.
func (s *session) handleStats(args []string) {
	for _, key := range s.list() {
		pc, ok := s.get(key)
		if !ok {
			continue
		}
		colorstring.Printf("[cyan]%s[reset]: largest_acked=%d phase=%s\n", key, pc.conn.LargestAcked(), pc.state.Phase())
	}
}

// handleLogLevel displays or changes the active log level. Usage: loglvl [NONE|WARN|INFO|DEBUG|TRACE]
func handleLogLevel(args []string) {
	if len(args) > 1 {
		fmt.Println("usage: loglvl [NONE|WARN|INFO|DEBUG|TRACE]")
		return
	}

	if len(args) == 1 {
		level, ok := logger.ParseLogLevel(upper(args[0]))
		if !ok {
			fmt.Printf("invalid log level: %s\n", args[0])
			return
		}
		logger.SetLogLevel(level)
		fmt.Printf("log level set to %s\n", level)
		return
	}

	fmt.Printf("current log level: %s\n", logger.GetLogLevel())
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
