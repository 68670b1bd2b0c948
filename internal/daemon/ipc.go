package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Request is one newline-delimited JSON IPC request, framed the way
// internal/rpc/server.go's handleConnection reads bd's control socket:
// one JSON object per line, response written the same way.
type Request struct {
	Op string `json:"op"`
}

// Response is the reply to a Request.
type Response struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Status Status `json:"status,omitempty"`
}

// Status is the payload returned by the "status" op.
type Status struct {
	PID           int    `json:"pid"`
	DBPath        string `json:"db_path"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	QueueDepth    int    `json:"queue_depth,omitempty"`
}

const ipcRequestTimeout = 5 * time.Second

// Server is the daemon's control-socket listener: stop, flush, status.
// Grounded on internal/rpc/server.go's handleConnection loop, trimmed to
// open-mem's three daemon control operations instead of bd's full RPC
// surface.
type Server struct {
	sockPath  string
	listener  net.Listener
	startedAt time.Time

	onStop   func()
	onFlush  func(ctx context.Context) (int, error)
	onStatus func() Status
}

// NewServer starts listening on sockPath. The socket file is removed and
// recreated if a stale one is left over from a prior crash.
func NewServer(sockPath string, onStop func(), onFlush func(ctx context.Context) (int, error), onStatus func() Status) (*Server, error) {
	_ = os.Remove(sockPath)
	l, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("daemon: listen on control socket: %w", err)
	}
	return &Server{
		sockPath:  sockPath,
		listener:  l,
		startedAt: time.Now(),
		onStop:    onStop,
		onFlush:   onFlush,
		onStatus:  onStatus,
	}, nil
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.sockPath)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	_ = conn.SetReadDeadline(time.Now().Add(ipcRequestTimeout))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return
	}

	var req Request
	resp := Response{OK: true}
	if err := json.Unmarshal(line, &req); err != nil {
		resp = Response{OK: false, Error: fmt.Sprintf("invalid request: %v", err)}
	} else {
		switch req.Op {
		case "stop":
			if s.onStop != nil {
				s.onStop()
			}
		case "flush":
			ctx, cancel := context.WithTimeout(context.Background(), ipcRequestTimeout)
			n, err := s.onFlush(ctx)
			cancel()
			if err != nil {
				resp = Response{OK: false, Error: err.Error()}
			} else {
				resp.Status = Status{QueueDepth: n}
			}
		case "status":
			if s.onStatus != nil {
				resp.Status = s.onStatus()
			}
		default:
			resp = Response{OK: false, Error: fmt.Sprintf("unknown op %q", req.Op)}
		}
	}

	_ = conn.SetWriteDeadline(time.Now().Add(ipcRequestTimeout))
	enc := json.NewEncoder(writer)
	if err := enc.Encode(resp); err != nil {
		log.Warn().Err(err).Msg("daemon: write ipc response failed")
		return
	}
	_ = writer.Flush()
}

// Dial connects to a running daemon's control socket and issues op,
// returning its response. Used by the CLI's "open-mem daemon stop/status"
// commands.
func Dial(sockPath, op string, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", sockPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("daemon: dial control socket: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := fmt.Fprintf(conn, "%s\n", mustMarshal(Request{Op: op})); err != nil {
		return nil, fmt.Errorf("daemon: send request: %w", err)
	}

	var resp Response
	dec := json.NewDecoder(conn)
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("daemon: read response: %w", err)
	}
	return &resp, nil
}

func mustMarshal(r Request) string {
	b, _ := json.Marshal(r)
	return string(b)
}
