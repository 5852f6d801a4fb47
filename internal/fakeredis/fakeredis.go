// Package fakeredis is a minimal in-memory RESP server for tests.
//
// It understands enough of the Redis command set to stand in for a shard
// master (strings, DEL/EXISTS and friends, MGET/MSET, INCR, AUTH, PING)
// plus a few commands that simulate misbehaving backends:
//
//	BZSLEEP <ms>   reply +OK after a delay
//	BZCLOSE        close the connection without replying
//	BZGARBAGE      reply with a malformed frame
package fakeredis

import (
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/blazar-go/internal/connection"
	"github.com/yndnr/blazar-go/pkg/resp"
)

// Server is a fake Redis listening on a loopback port.
type Server struct {
	ln       net.Listener
	password string

	mu    sync.Mutex
	data  map[string][]byte
	conns map[net.Conn]struct{}

	commands atomic.Int64
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithPassword requires AUTH with password before other commands.
func WithPassword(password string) Option {
	return func(s *Server) {
		s.password = password
	}
}

// Start listens on 127.0.0.1 with a random port and serves until Close.
func Start(opts ...Option) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:    ln,
		data:  make(map[string][]byte),
		conns: make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Commands returns how many commands the server has received.
func (s *Server) Commands() int64 {
	return s.commands.Load()
}

// Get returns the stored value for key.
func (s *Server) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// Keys returns the number of stored keys.
func (s *Server) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// DropConnections closes every open client connection but keeps listening.
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

// Close stops the listener, closes all connections and waits for handlers.
func (s *Server) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	_ = s.ln.Close()
	s.DropConnections()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[nc] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(nc)
		}()
	}
}

func (s *Server) serve(nc net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, nc)
		s.mu.Unlock()
		_ = nc.Close()
	}()

	c := connection.New(nc)
	authed := s.password == ""
	for {
		f, err := c.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && resp.IsTerminal(err) {
				_ = c.WriteError("ERR Protocol error: " + err.Error())
			}
			return
		}
		s.commands.Add(1)

		args, ok := commandArgs(f)
		if !ok || len(args) == 0 {
			_ = c.WriteError("ERR Protocol error: expected array of bulk strings")
			return
		}
		name := strings.ToUpper(args[0])

		switch name {
		case "BZCLOSE":
			return
		case "BZGARBAGE":
			_, _ = nc.Write([]byte("?garbage\r\n"))
			continue
		case "AUTH":
			pw := args[len(args)-1]
			if len(args) < 2 || pw != s.password {
				_ = c.WriteError("WRONGPASS invalid username-password pair or user is disabled.")
				continue
			}
			authed = true
			_ = c.WriteFrame(resp.Simple("OK"))
			continue
		}

		if !authed {
			_ = c.WriteError("NOAUTH Authentication required.")
			continue
		}
		if err := c.WriteFrame(s.exec(name, args[1:])); err != nil {
			return
		}
	}
}

func (s *Server) exec(name string, args []string) resp.Frame {
	switch name {
	case "PING":
		if len(args) > 0 {
			return resp.BulkString(args[0])
		}
		return resp.Simple("PONG")
	case "BZSLEEP":
		ms, _ := strconv.Atoi(first(args))
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return resp.Simple("OK")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case "GET":
		if len(args) != 1 {
			return arityErr(name)
		}
		if v, ok := s.data[args[0]]; ok {
			return resp.Bulk(v)
		}
		return resp.Null()
	case "SET":
		if len(args) < 2 {
			return arityErr(name)
		}
		s.data[args[0]] = []byte(args[1])
		return resp.Simple("OK")
	case "INCR":
		if len(args) != 1 {
			return arityErr(name)
		}
		n, err := strconv.ParseInt(string(s.data[args[0]]), 10, 64)
		if err != nil && len(s.data[args[0]]) > 0 {
			return resp.Error("ERR value is not an integer or out of range")
		}
		n++
		s.data[args[0]] = []byte(strconv.FormatInt(n, 10))
		return resp.Integer(n)
	case "DEL", "UNLINK", "EXISTS", "TOUCH":
		var n int64
		for _, k := range args {
			if _, ok := s.data[k]; ok {
				n++
				if name == "DEL" || name == "UNLINK" {
					delete(s.data, k)
				}
			}
		}
		return resp.Integer(n)
	case "MGET":
		out := make([]resp.Frame, len(args))
		for i, k := range args {
			if v, ok := s.data[k]; ok {
				out[i] = resp.Bulk(v)
			} else {
				out[i] = resp.Null()
			}
		}
		return resp.Array(out...)
	case "MSET":
		if len(args) == 0 || len(args)%2 != 0 {
			return arityErr(name)
		}
		for i := 0; i < len(args); i += 2 {
			s.data[args[i]] = []byte(args[i+1])
		}
		return resp.Simple("OK")
	case "LPUSH":
		return resp.Error("WRONGTYPE Operation against a key holding the wrong kind of value")
	default:
		return resp.Error("ERR unknown command '" + strings.ToLower(name) + "'")
	}
}

func commandArgs(f resp.Frame) ([]string, bool) {
	if f.Kind != resp.KindArray {
		return nil, false
	}
	args := make([]string, len(f.Array))
	for i, e := range f.Array {
		if e.Kind != resp.KindBulk {
			return nil, false
		}
		args[i] = string(e.Bulk)
	}
	return args, true
}

func arityErr(name string) resp.Frame {
	return resp.Error("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")
}

func first(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
