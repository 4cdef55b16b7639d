// Package transport is a thin UDP socket wrapper that moves opaque
// wire.Packets. It knows nothing about packet numbers, frames, or
// acknowledgment — that is ackhandler's job upstream.
package transport

import (
	"bytes"
	"errors"
	"net"
	"net/netip"

	"quicore.dev/quicore/internal/wire"
	"quicore.dev/quicore/util/assert"
	"quicore.dev/quicore/util/logger"
	"quicore.dev/quicore/util/observer"
)

// InboundPacket pairs a decoded packet with the address it arrived from.
type InboundPacket struct {
	Addr   *net.UDPAddr
	Packet *wire.Packet
}

// Endpoint is the single UDP socket an application has open. All
// connections multiplex over it by destination address.
type Endpoint struct {
	conn       *net.UDPConn
	observable *observer.Observable[*InboundPacket]
}

// NewEndpoint constructs an unopened Endpoint. bufferSize sizes the
// channel returned by Subscribe.
func NewEndpoint(bufferSize int) *Endpoint {
	return &Endpoint{
		observable: observer.NewObservable[*InboundPacket](bufferSize),
	}
}

// LocalAddress returns the bound local address, erroring if Open has not
// been called.
func (e *Endpoint) LocalAddress() (netip.AddrPort, error) {
	if e.conn == nil {
		return netip.AddrPort{}, errors.New("endpoint is not open")
	}
	return e.conn.LocalAddr().(*net.UDPAddr).AddrPort(), nil
}

// MustLocalAddress is LocalAddress but panics instead of erroring.
func (e *Endpoint) MustLocalAddress() netip.AddrPort {
	addr, err := e.LocalAddress()
	assert.IsNil(err, "endpoint must be open to read its local address")
	return addr
}

// Subscribe returns a channel that receives every inbound packet this
// endpoint successfully decodes. Malformed datagrams are logged and
// dropped rather than delivered.
func (e *Endpoint) Subscribe() chan *InboundPacket {
	return e.observable.Subscribe()
}

// Open binds a UDP socket on ipv4addr with a kernel-assigned port and
// starts the read loop.
func (e *Endpoint) Open(ipv4addr net.IP) (*net.UDPAddr, error) {
	assert.Assert(e.conn == nil, "endpoint is already open; call Close first")

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: ipv4addr, Port: 0})
	if err != nil {
		return nil, err
	}
	e.conn = conn

	go e.readLoop()

	return conn.LocalAddr().(*net.UDPAddr), nil
}

func (e *Endpoint) readLoop() {
	buf := make([]byte, 1500)
	for {
		n, addr, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warnf("endpoint read failed: %v", err)
			continue
		}

		pkt, err := wire.DecodePacket(buf[:n])
		if err != nil {
			logger.Debugf("dropping malformed datagram from %v: %v", addr, err)
			continue
		}

		e.observable.NotifyObservers(&InboundPacket{Addr: addr, Packet: pkt})
	}
}

// SendTo encodes pkt and writes it to addr, returning a channel that
// receives the send error (or nil) once the write completes. This models
// the "future" return from the transport collaborator.
func (e *Endpoint) SendTo(addr *net.UDPAddr, pkt *wire.Packet) <-chan error {
	result := make(chan error, 1)

	var buf bytes.Buffer
	if err := wire.EncodePacket(&buf, pkt); err != nil {
		result <- err
		close(result)
		return result
	}

	assert.Assert(e.conn != nil, "endpoint must be open before sending")
	_, err := e.conn.WriteToUDP(buf.Bytes(), addr)
	result <- err
	close(result)
	return result
}

// Close shuts down the socket. Subscribers are not cleared; a future Open
// reuses the same observable.
func (e *Endpoint) Close() error {
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn = nil
	return err
}

// PeerSender binds an Endpoint to one fixed remote address, implementing
// ackhandler.PacketSender for a single connection.
type PeerSender struct {
	endpoint *Endpoint
	remote   *net.UDPAddr
}

// NewPeerSender returns a PacketSender that routes every packet to
// remote over endpoint.
func NewPeerSender(endpoint *Endpoint, remote *net.UDPAddr) *PeerSender {
	return &PeerSender{endpoint: endpoint, remote: remote}
}

// Send implements ackhandler.PacketSender.
func (p *PeerSender) Send(pkt *wire.Packet) <-chan error {
	return p.endpoint.SendTo(p.remote, pkt)
}
