package main

import (
	"fmt"
	"net"
	"sync"

	"quicore.dev/quicore/config"
	"quicore.dev/quicore/internal/connstate"
	"quicore.dev/quicore/internal/handshake"
	"quicore.dev/quicore/internal/protocol"
	"quicore.dev/quicore/internal/wire"
	"quicore.dev/quicore/pipeline"
	"quicore.dev/quicore/transport"
	"quicore.dev/quicore/util/logger"
)

// peerConnection bundles one remote peer's Connection with the handshake
// machine driving it and the state it shares with the reliability core.
type peerConnection struct {
	conn      *pipeline.Connection
	machine   *handshake.Machine
	state     *connstate.State
	remoteStr string
}

// session is quicctl's process-wide state: one transport.Endpoint shared
// by every peer connection.
type session struct {
	mu       sync.Mutex
	endpoint *transport.Endpoint
	cfg      config.Config
	peers    map[string]*peerConnection
	nextCID  uint64
}

func newSession() *session {
	return &session{
		endpoint: transport.NewEndpoint(64),
		cfg:      config.NewBuilder().MustBuild(),
		peers:    make(map[string]*peerConnection),
	}
}

func (s *session) open() (*net.UDPAddr, error) {
	addr, err := s.endpoint.Open(net.IPv4(127, 0, 0, 1))
	if err != nil {
		return nil, err
	}
	go s.readLoop()
	return addr, nil
}

func (s *session) readLoop() {
	inbound := s.endpoint.Subscribe()
	for in := range inbound {
		s.mu.Lock()
		pc, ok := s.peers[in.Addr.String()]
		s.mu.Unlock()
		if !ok {
			logger.Debugf("dropping packet from unknown peer %v", in.Addr)
			continue
		}
		if err := pc.conn.Receive(in.Packet); err != nil {
			logger.Warnf("connection to %v closed: %v", in.Addr, err)
		}
	}
}

// connectTo registers a new peer connection addressed at remote. It does
// not perform a real TLS handshake; it moves straight to PhaseEstablished
// so STREAM frames are admitted immediately. No packets are exchanged to
// set the connection up.
func (s *session) connectTo(remote *net.UDPAddr) *peerConnection {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := remote.String()
	if pc, ok := s.peers[key]; ok {
		return pc
	}

	state := connstate.New()
	s.nextCID++
	destCID := wire.ConnectionID(fmt.Sprintf("peer-%d", s.nextCID))
	srcCID := wire.ConnectionID("quicctl")

	sender := transport.NewPeerSender(s.endpoint, remote)
	conn := pipeline.NewConnection(s.cfg, state, pipeline.WallClock{}, pipeline.RealScheduler{}, sender, destCID, srcCID, func(f *wire.StreamFrame) {
		fmt.Printf("\n[%s] %s\n", key, string(f.Data))
	})

	machine := handshake.New(state, protocol.PerspectiveClient)
	machine.OnCryptoFrame(protocol.Encryption1RTT)
	conn.SetLevel(protocol.Encryption1RTT)

	pc := &peerConnection{conn: conn, machine: machine, state: state, remoteStr: key}
	s.peers[key] = pc
	return pc
}

func (s *session) get(remoteStr string) (*peerConnection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.peers[remoteStr]
	return pc, ok
}

// pickLevel returns the encryption level a peer's outbound frames should
// be tagged with. quicctl never runs a real handshake, so every
// connection is 1-RTT from the moment connectTo registers it.
func pickLevel(pc *peerConnection) protocol.EncryptionLevel {
	return protocol.Encryption1RTT
}

func (s *session) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.peers))
	for k := range s.peers {
		out = append(out, k)
	}
	return out
}
