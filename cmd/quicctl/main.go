// Command quicctl is a REPL for driving the reliability core directly:
// connect to a peer, send STREAM data, soak-test with bulk sends, and
// inspect each peer's LargestAcked watermark and connection phase.
package main

import (
	"fmt"
	"net"

	"golang.org/x/term"

	"quicore.dev/quicore/util/logger"
)

func main() {
	fmt.Println("quicctl starting...")

	s := newSession()

	localAddr, err := s.open()
	if err != nil {
		logger.Errorf("failed to open endpoint: %v", err)
		return
	}
	fmt.Printf("listening on %s:%d\n", localAddr.IP, localAddr.Port)

	if !term.IsTerminal(0) {
		logger.Infof("stdin is not a terminal; running non-interactively")
	}

	reader := newInputReader(func() string {
		addr, err := s.endpoint.LocalAddress()
		if err != nil {
			return "closed"
		}
		return addr.String()
	})

	reader.addHandler("connect", s.handleConnect)
	reader.addHandler("send", s.handleSend)
	reader.addHandler("soak", s.handleSoak)
	reader.addHandler("stats", s.handleStats)
	reader.addHandler("loglvl", func(args []string) { handleLogLevel(args) })
	reader.addHandler("exit", func(args []string) {
		if err := s.endpoint.Close(); err != nil {
			logger.Warnf("error closing endpoint: %v", err)
		}
	})

	printAvailableNetworkAddresses()

	reader.loop()
}

func printAvailableNetworkAddresses() {
	inter, err := net.Interfaces()
	if err != nil {
		logger.Warnf("failed to list network interfaces: %v", err)
		return
	}

	fmt.Println("available network interfaces:")
	for _, iface := range inter {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			logger.Warnf("failed to list addresses for %s: %v", iface.Name, err)
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			fmt.Printf("  %s: %s\n", iface.Name, ipnet.IP)
		}
	}
}
