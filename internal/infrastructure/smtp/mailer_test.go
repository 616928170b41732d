package smtp

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-auth-nosql/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal SMTP responder that refuses recipients in reject.
type fakeServer struct {
	ln     net.Listener
	reject map[string]bool

	mu   sync.Mutex
	data []string
}

func startServer(t *testing.T, reject ...string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{ln: ln, reject: make(map[string]bool)}
	for _, r := range reject {
		s.reject[r] = true
	}
	t.Cleanup(func() { ln.Close() })
	go s.serve()
	return s
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 fake ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch {
		case verb == "EHLO" || verb == "HELO":
			_ = tp.PrintfLine("250 fake")
		case verb == "MAIL":
			_ = tp.PrintfLine("250 ok")
		case verb == "RCPT":
			addr := line[strings.Index(line, "<")+1 : strings.LastIndex(line, ">")]
			if s.reject[addr] {
				_ = tp.PrintfLine("550 no such user")
				continue
			}
			_ = tp.PrintfLine("250 ok")
		case verb == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = append(s.data, strings.Join(body, "\n"))
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case verb == "RSET":
			_ = tp.PrintfLine("250 ok")
		case verb == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 not implemented")
		}
	}
}

func (s *fakeServer) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.data...)
}

func newTestMailer(addr string) *Mailer {
	host, port, _ := net.SplitHostPort(addr)
	return NewMailer(&config.Config{
		SMTPHost:    host,
		SMTPPort:    port,
		SMTPFrom:    "noreply@example.com",
		SMTPTimeout: 2 * time.Second,
	})
}

func TestSend_Accepted(t *testing.T) {
	srv := startServer(t)
	m := newTestMailer(srv.ln.Addr().String())

	d, err := m.Send(context.Background(), "a@x.com", "Your Verification Code", "<h1>123456</h1>")
	require.NoError(t, err)
	assert.True(t, d.AcceptedBy("a@x.com"))

	msgs := srv.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Subject: Your Verification Code")
	assert.Contains(t, msgs[0], "text/html")
	assert.Contains(t, msgs[0], "123456")
}

func TestSend_RecipientRefused(t *testing.T) {
	srv := startServer(t, "ghost@x.com")
	m := newTestMailer(srv.ln.Addr().String())

	d, err := m.Send(context.Background(), "ghost@x.com", "s", "b")
	require.NoError(t, err)
	assert.False(t, d.AcceptedBy("ghost@x.com"))
	assert.Empty(t, srv.messages())
}

func TestSend_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = newTestMailer(addr).Send(context.Background(), "a@x.com", "s", "b")
	assert.ErrorContains(t, err, "smtp dial")
}

func TestSend_SilentServerTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = bufio.NewReader(conn).ReadString('\n')
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = newTestMailer(ln.Addr().String()).Send(ctx, "a@x.com", "s", "b")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
