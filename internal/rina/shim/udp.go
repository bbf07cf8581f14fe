package shim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rinacore/ipcpd/internal/logger"
	"github.com/rinacore/ipcpd/internal/rina/pdu"
)

// maxDatagramSize bounds a single UDP read; datagrams larger than this
// (or than pdu.MaxPayloadSize once decoded) are malformed in the core.
const maxDatagramSize = 65535

// readDeadlinePoll is how often the receive loop re-checks ctx/shutdown
// between blocking UDP reads.
const readDeadlinePoll = 500 * time.Millisecond

// UDPShim implements Shim over a single UDP socket.
type UDPShim struct {
	peers *peerTable

	mu           sync.Mutex
	conn         *net.UDPConn
	closed       bool
	shutdown     chan struct{}
	shutdownOnce sync.Once

	decodeErrors uint64
}

// NewUDP returns an unbound UDPShim; call Bind to start listening.
func NewUDP() *UDPShim {
	return &UDPShim{peers: newPeerTable(), shutdown: make(chan struct{})}
}

// Bind opens the UDP socket at endpoint (host:port). ctx is not retained;
// it only bounds the bind attempt itself.
func (s *UDPShim) Bind(ctx context.Context, endpoint string) error {
	addr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		return fmt.Errorf("shim: resolve %s: %w", endpoint, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("shim: listen %s: %w", endpoint, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	logger.Info("shim bound", logger.Endpoint(conn.LocalAddr().String()))
	return nil
}

// SendPDU resolves dst_addr via the peer table and transmits one
// datagram. Transient I/O errors are returned, not retried.
func (s *UDPShim) SendPDU(ctx context.Context, p *pdu.PDU) error {
	s.mu.Lock()
	conn := s.conn
	closed := s.closed
	s.mu.Unlock()
	if closed || conn == nil {
		return ErrClosed
	}

	endpoint, ok := s.peers.lookup(p.DstAddr)
	if !ok {
		return ErrUnknownPeer
	}

	addr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		return fmt.Errorf("shim: resolve peer endpoint %s: %w", endpoint, err)
	}

	data, err := p.Encode()
	if err != nil {
		return fmt.Errorf("shim: encode pdu: %w", err)
	}

	if _, err := conn.WriteToUDP(data, addr); err != nil {
		return fmt.Errorf("shim: write: %w", err)
	}
	return nil
}

// ReceivePDU reads the next datagram, decoding it as a PDU. Decode
// failures increment a counter and are skipped transparently: the loop
// retries until a valid PDU arrives, ctx is cancelled, or the shim
// closes.
func (s *UDPShim) ReceivePDU(ctx context.Context) (Received, error) {
	buf := make([]byte, maxDatagramSize)

	for {
		s.mu.Lock()
		conn := s.conn
		closed := s.closed
		s.mu.Unlock()
		if closed || conn == nil {
			return Received{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Received{}, ctx.Err()
		case <-s.shutdown:
			return Received{}, ErrClosed
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(readDeadlinePoll)); err != nil {
			return Received{}, fmt.Errorf("shim: set read deadline: %w", err)
		}

		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			select {
			case <-s.shutdown:
				return Received{}, ErrClosed
			default:
				return Received{}, fmt.Errorf("shim: read: %w", err)
			}
		}

		decoded, err := pdu.Decode(buf[:n])
		if err != nil {
			s.mu.Lock()
			s.decodeErrors++
			s.mu.Unlock()
			logger.Debug("shim: decode failed, dropping datagram", logger.Err(err), "source", addr.String())
			continue
		}

		return Received{PDU: decoded, Source: addr.String()}, nil
	}
}

// RegisterPeer associates addr with endpoint.
func (s *UDPShim) RegisterPeer(addr uint64, endpoint string) {
	s.peers.register(addr, endpoint)
}

// LookupPeer returns the endpoint registered for addr, if any.
func (s *UDPShim) LookupPeer(addr uint64) (string, bool) {
	return s.peers.lookup(addr)
}

// UpdatePeer rebinds addr to newEndpoint.
func (s *UDPShim) UpdatePeer(addr uint64, newEndpoint string) {
	s.peers.update(addr, newEndpoint)
}

// DecodeErrors returns the count of datagrams dropped for decode failure.
func (s *UDPShim) DecodeErrors() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decodeErrors
}

// Close closes the UDP socket. Safe to call more than once.
func (s *UDPShim) Close() error {
	s.shutdownOnce.Do(func() { close(s.shutdown) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

var _ Shim = (*UDPShim)(nil)
