// Package relay is the UDP peer relay for in-race traffic. Clients that
// cannot reach each other directly send their peer datagrams here; the
// relay learns each sender and echoes every datagram to the other known
// senders unchanged.
package relay

import (
	"encoding/binary"
	"errors"
	"log"
	"net"
	"sync"
	"time"
)

// headerSize is the fixed datagram prologue: three little-endian u16
// fields. The second field is always 1 on well-formed traffic.
const headerSize = 6

// peerTTL expires senders that went quiet so the peer set does not grow
// without bound.
const peerTTL = 30 * time.Second

type Relay struct {
	log  *log.Logger
	conn *net.UDPConn

	mu    sync.Mutex
	peers map[string]peer

	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

type peer struct {
	addr *net.UDPAddr
	seen time.Time
}

func New(logger *log.Logger) *Relay {
	return &Relay{
		log:    logger,
		peers:  make(map[string]peer),
		closed: make(chan struct{}),
	}
}

// Host binds the relay socket and starts forwarding.
func (r *Relay) Host(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	r.conn = conn
	r.log.Printf("relay hosted on %s", conn.LocalAddr())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.serve()
	}()
	return nil
}

func (r *Relay) Addr() net.Addr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

func (r *Relay) Close() error {
	var err error
	r.once.Do(func() {
		close(r.closed)
		if r.conn != nil {
			err = r.conn.Close()
		}
		r.wg.Wait()
	})
	return err
}

func (r *Relay) serve() {
	buf := make([]byte, 2048)
	for {
		n, src, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.log.Printf("relay read: %v", err)
			continue
		}
		if n < headerSize {
			continue
		}
		if binary.LittleEndian.Uint16(buf[2:4]) != 1 {
			continue
		}
		r.forward(src, buf[:n])
	}
}

func (r *Relay) forward(src *net.UDPAddr, datagram []byte) {
	now := time.Now()
	key := src.String()

	r.mu.Lock()
	r.peers[key] = peer{addr: src, seen: now}
	targets := make([]*net.UDPAddr, 0, len(r.peers))
	for k, p := range r.peers {
		if now.Sub(p.seen) > peerTTL {
			delete(r.peers, k)
			continue
		}
		if k == key {
			continue
		}
		targets = append(targets, p.addr)
	}
	r.mu.Unlock()

	for _, addr := range targets {
		if _, err := r.conn.WriteToUDP(datagram, addr); err != nil {
			r.log.Printf("relay write to %s: %v", addr, err)
		}
	}
}

// PeerCount reports the live sender count, for the observer surface.
func (r *Relay) PeerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	n := 0
	for _, p := range r.peers {
		if now.Sub(p.seen) <= peerTTL {
			n++
		}
	}
	return n
}
