// Package tcp hosts one game endpoint: it accepts connections, frames and
// descrambles inbound commands, dispatches them to registered handlers and
// serializes outbound frames through a per-client queue.
package tcp

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"gallop.gg/internal/protocol"
)

// ClientID identifies a connection on one endpoint. Ids are endpoint-local
// and assigned monotonically on accept; they are never reused.
type ClientID uint32

// Handler consumes one decoded frame body. Returning an error disconnects
// the client.
type Handler func(client ClientID, r *protocol.Reader) error

// Events receives connection lifecycle callbacks. For a single client
// Connected always precedes Disconnected and the pair is delivered exactly
// once; callbacks for different clients may run concurrently.
type Events interface {
	HandleClientConnected(client ClientID)
	HandleClientDisconnected(client ClientID)
}

const outboundQueueSize = 256

type outFrame struct {
	msg    protocol.Clientbound
	setKey *[4]byte
}

type client struct {
	id   ClientID
	conn net.Conn

	out  chan outFrame
	done chan struct{}
	once sync.Once
}

type Server struct {
	name   string
	log    *log.Logger
	events Events

	handlers map[protocol.CommandID]Handler

	mu      sync.Mutex
	clients map[ClientID]*client
	nextID  ClientID

	ln     net.Listener
	wg     sync.WaitGroup
	closed atomic.Bool
}

func NewServer(name string, events Events, logger *log.Logger) *Server {
	return &Server{
		name:     name,
		log:      logger,
		events:   events,
		handlers: make(map[protocol.CommandID]Handler),
		clients:  make(map[ClientID]*client),
	}
}

// Handle registers the handler for a command id. Registration happens
// during wiring, before Host.
func (s *Server) Handle(id protocol.CommandID, h Handler) {
	if _, dup := s.handlers[id]; dup {
		panic(fmt.Sprintf("tcp: duplicate handler for command %#04x", uint16(id)))
	}
	s.handlers[id] = h
}

// HandleTyped decodes into a fresh T before invoking fn.
func HandleTyped[T any, PT interface {
	*T
	protocol.Serverbound
}](s *Server, fn func(client ClientID, cmd T) error) {
	var probe PT = new(T)
	s.Handle(probe.ID(), func(client ClientID, r *protocol.Reader) error {
		var cmd PT = new(T)
		if err := cmd.Decode(r); err != nil {
			return err
		}
		return fn(client, *cmd)
	})
}

// Host binds the listener and starts accepting. It returns once the
// listener is up.
func (s *Server) Host(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Printf("%s endpoint hosted on %s", s.name, ln.Addr())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		c.close()
	}

	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.log.Printf("%s accept: %v", s.name, err)
			return
		}

		s.mu.Lock()
		s.nextID++
		c := &client{
			id:   s.nextID,
			conn: conn,
			out:  make(chan outFrame, outboundQueueSize),
			done: make(chan struct{}),
		}
		s.clients[c.id] = c
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveClient(c)
		}()
	}
}

func (s *Server) serveClient(c *client) {
	s.log.Printf("%s client %d connected from %s", s.name, c.id, c.conn.RemoteAddr())
	if s.events != nil {
		s.events.HandleClientConnected(c.id)
	}

	go s.writeLoop(c)
	s.readLoop(c)

	c.close()
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()

	if s.events != nil {
		s.events.HandleClientDisconnected(c.id)
	}
	s.log.Printf("%s client %d disconnected", s.name, c.id)
}

// readLoop frames, descrambles and dispatches until the connection drops
// or a protocol violation demotes the client to a disconnect. Serverbound
// frames always use the initial scrambler key; SetCode only rotates the
// clientbound direction.
func (s *Server) readLoop(c *client) {
	br := bufio.NewReaderSize(c.conn, protocol.BufferSize)
	scram := protocol.NewScrambler()
	header := make([]byte, protocol.HeaderSize)
	body := make([]byte, 0, 512)

	for {
		if _, err := io.ReadFull(br, header); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Printf("%s client %d read: %v", s.name, c.id, err)
			}
			return
		}

		commandID, payloadLength, err := protocol.DecodeHeader(binary.LittleEndian.Uint32(header))
		if err != nil {
			s.log.Printf("%s client %d: %v", s.name, c.id, err)
			return
		}
		if payloadLength < protocol.HeaderSize || payloadLength > protocol.BufferSize {
			s.log.Printf("%s client %d: impossible frame length %d", s.name, c.id, payloadLength)
			return
		}

		n := int(payloadLength) - protocol.HeaderSize
		if cap(body) < n {
			body = make([]byte, n)
		}
		body = body[:n]
		if _, err := io.ReadFull(br, body); err != nil {
			return
		}
		scram.Apply(body)

		handler, ok := s.handlers[protocol.CommandID(commandID)]
		if !ok {
			s.log.Printf("%s client %d: no handler for command %#04x", s.name, c.id, commandID)
			continue
		}
		if err := handler(c.id, protocol.NewReader(body)); err != nil {
			s.log.Printf("%s client %d: command %#04x: %v", s.name, c.id, commandID, err)
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	scram := protocol.NewScrambler()
	for {
		select {
		case <-c.done:
			return
		case f := <-c.out:
			if f.setKey != nil {
				scram.SetKey(*f.setKey)
				continue
			}
			w := protocol.NewWriter()
			if err := f.msg.Encode(w); err != nil {
				s.log.Printf("%s client %d encode %#04x: %v", s.name, c.id, uint16(f.msg.ID()), err)
				continue
			}
			body := w.Bytes()
			payloadLength := len(body) + protocol.HeaderSize
			if payloadLength > protocol.BufferSize {
				s.log.Printf("%s client %d: frame %#04x overflows buffer (%d bytes)", s.name, c.id, uint16(f.msg.ID()), payloadLength)
				continue
			}

			frame := make([]byte, payloadLength)
			protocol.PutHeader(frame, uint16(f.msg.ID()), uint16(payloadLength))
			copy(frame[protocol.HeaderSize:], body)
			scram.Apply(frame[protocol.HeaderSize:])

			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if _, err := c.conn.Write(frame); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (s *Server) lookup(id ClientID) *client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[id]
}

// Queue enqueues a clientbound message. The message is encoded when the
// frame is written, so callers pass values and never wait on the socket.
// A client that cannot drain its queue is disconnected.
func (s *Server) Queue(id ClientID, msg protocol.Clientbound) {
	c := s.lookup(id)
	if c == nil {
		return
	}
	select {
	case c.out <- outFrame{msg: msg}:
	case <-c.done:
	default:
		s.log.Printf("%s client %d outbound queue full, disconnecting", s.name, id)
		c.close()
	}
}

// SetCode rotates the clientbound scrambler key. The rotation is ordered
// with the frames already queued.
func (s *Server) SetCode(id ClientID, key [4]byte) {
	c := s.lookup(id)
	if c == nil {
		return
	}
	k := key
	select {
	case c.out <- outFrame{setKey: &k}:
	case <-c.done:
	default:
		c.close()
	}
}

func (s *Server) DisconnectClient(id ClientID) {
	if c := s.lookup(id); c != nil {
		c.close()
	}
}

func (s *Server) ClientAddress(id ClientID) (net.Addr, error) {
	c := s.lookup(id)
	if c == nil {
		return nil, fmt.Errorf("tcp: unknown client %d", id)
	}
	return c.conn.RemoteAddr(), nil
}
