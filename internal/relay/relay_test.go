package relay

import (
	"encoding/binary"
	"io"
	"log"
	"net"
	"testing"
	"time"
)

func newTestRelay(t *testing.T) *Relay {
	t.Helper()
	r := New(log.New(io.Discard, "", 0))
	if err := r.Host("127.0.0.1:0"); err != nil {
		t.Fatalf("host: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func dialRelay(t *testing.T, r *Relay) *net.UDPConn {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, r.Addr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func datagram(payload []byte) []byte {
	d := make([]byte, 6+len(payload))
	binary.LittleEndian.PutUint16(d[0:2], 7)
	binary.LittleEndian.PutUint16(d[2:4], 1)
	binary.LittleEndian.PutUint16(d[4:6], 0)
	copy(d[6:], payload)
	return d
}

func TestRelayEchoesToOtherSendersOnly(t *testing.T) {
	r := newTestRelay(t)
	a := dialRelay(t, r)
	b := dialRelay(t, r)

	// Both endpoints announce themselves.
	if _, err := a.Write(datagram([]byte("from-a"))); err != nil {
		t.Fatalf("a write: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := b.Write(datagram([]byte("from-b"))); err != nil {
		t.Fatalf("b write: %v", err)
	}

	// a must receive b's datagram.
	_ = a.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 2048)
	n, err := a.Read(buf)
	if err != nil {
		t.Fatalf("a read: %v", err)
	}
	if string(buf[6:n]) != "from-b" {
		t.Fatalf("a got %q", buf[6:n])
	}

	// b must not have received its own datagram back.
	_ = b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if n, err := b.Read(buf); err == nil && string(buf[6:n]) == "from-b" {
		t.Fatal("datagram echoed to its own sender")
	}
}

func TestRelayDropsMalformedDatagrams(t *testing.T) {
	r := newTestRelay(t)
	a := dialRelay(t, r)
	b := dialRelay(t, r)

	if _, err := a.Write(datagram([]byte("hello"))); err != nil {
		t.Fatalf("a write: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	// Too short, then a bad second field: neither may register b as a
	// peer or be forwarded.
	if _, err := b.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("short write: %v", err)
	}
	bad := datagram([]byte("bad"))
	binary.LittleEndian.PutUint16(bad[2:4], 9)
	if _, err := b.Write(bad); err != nil {
		t.Fatalf("bad write: %v", err)
	}

	_ = a.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 2048)
	if _, err := a.Read(buf); err == nil {
		t.Fatal("malformed datagram was forwarded")
	}
	if got := r.PeerCount(); got != 1 {
		t.Fatalf("peer count = %d, want 1", got)
	}
}
