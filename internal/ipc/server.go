package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/himewm/himewm/internal/action"
	"github.com/himewm/himewm/internal/config"
	"github.com/himewm/himewm/internal/runtimepath"
	"github.com/himewm/himewm/internal/wm"
)

// Server handles IPC requests from CLI clients. It holds no window-manager
// state of its own; every command either reads the Manager through
// withManager (which runs the read on the pump goroutine), reads its own
// copy of the configuration bundle, or posts onto reloadChan/restartChan
// for the Event Pump to act on (spec.md §5 forbids touching Manager from
// any goroutine but the pump's).
type Server struct {
	socketPath string
	listener   net.Listener

	mgrMu sync.RWMutex
	mgr   *wm.Manager

	bundleMu sync.RWMutex
	bundle   *config.Bundle

	dispatcher   *action.Dispatcher
	startTime    time.Time
	reloadChan   chan struct{}
	restartChan  chan struct{}
	runOnPump    func(func())
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates an IPC server. reloadChan and restartChan are observed
// by the daemon's event pump to actually perform a config reload or a full
// restart (spec.md §4.5); the server itself never reconstructs a Manager.
// runOnPump marshals a read of Manager state onto the pump's goroutine and
// blocks until it runs — every connection is handled on its own goroutine,
// and spec.md §5 forbids touching Manager from any goroutine but the
// pump's. A nil runOnPump (e.g. in tests) runs the read inline instead.
func NewServer(mgr *wm.Manager, bundle *config.Bundle, dispatcher *action.Dispatcher, reloadChan, restartChan chan struct{}, runOnPump func(func())) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	os.Remove(socketPath)

	return &Server{
		socketPath:  socketPath,
		mgr:         mgr,
		bundle:      bundle,
		dispatcher:  dispatcher,
		startTime:   time.Now(),
		reloadChan:  reloadChan,
		restartChan: restartChan,
		runOnPump:   runOnPump,
	}, nil
}

// withManager runs fn with the server's current Manager on the pump
// goroutine (or inline if runOnPump is nil) and waits for it to finish.
func (s *Server) withManager(fn func(*wm.Manager)) {
	s.mgrMu.RLock()
	mgr := s.mgr
	s.mgrMu.RUnlock()

	if s.runOnPump == nil {
		fn(mgr)
		return
	}
	done := make(chan struct{})
	s.runOnPump(func() {
		fn(mgr)
		close(done)
	})
	<-done
}

// Start begins listening for IPC connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("ipc: listening on %s", s.socketPath)

	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("ipc: accept error: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("ipc: read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("ipc: failed to marshal response: %v", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("ipc: failed to send response: %v", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandRestart:
		return s.handleRestart()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetMonitors:
		return s.handleGetMonitors()
	case CommandListLayouts:
		return s.handleListLayouts()
	case CommandSetDefaultLayout:
		return s.handleSetDefaultLayout(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload() *Response {
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

// handleRestart signals the event pump's goroutine to perform the restart
// (spec.md §4.5); it never touches the Manager directly from this
// connection-handling goroutine (spec.md §5).
func (s *Server) handleRestart() *Response {
	select {
	case s.restartChan <- struct{}{}:
	default:
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus() *Response {
	var status StatusData
	s.withManager(func(mgr *wm.Manager) {
		status = StatusData{
			WindowCount:    mgr.WindowCount(),
			WorkspaceCount: mgr.WorkspaceCount(),
			UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
			DaemonRunning:  true,
		}
	})
	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleGetMonitors() *Response {
	var infos []MonitorInfo
	s.withManager(func(mgr *wm.Manager) {
		for _, id := range mgr.Monitors() {
			rect, err := mgr.Services.MonitorWorkRect(id)
			if err != nil {
				continue
			}
			infos = append(infos, MonitorInfo{
				ID:     int(id),
				X:      rect.X,
				Y:      rect.Y,
				Width:  rect.Width,
				Height: rect.Height,
			})
		}
	})

	resp, _ := NewOKResponse(MonitorsData{Monitors: infos})
	return resp
}

func (s *Server) handleListLayouts() *Response {
	s.bundleMu.RLock()
	defer s.bundleMu.RUnlock()

	def := ""
	if idx := s.bundle.Settings.DefaultLayoutIdx; idx >= 0 && idx < len(s.bundle.LayoutNames) {
		def = s.bundle.LayoutNames[idx]
	}
	resp, _ := NewOKResponse(LayoutsData{
		Layouts:       s.bundle.LayoutNames,
		DefaultLayout: def,
	})
	return resp
}

func (s *Server) handleSetDefaultLayout(payload json.RawMessage) *Response {
	var req SetDefaultLayoutPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid set-default payload: %v", err))
	}
	if req.LayoutName == "" {
		return NewErrorResponse("layout_name is required")
	}

	s.bundleMu.RLock()
	found := false
	for _, n := range s.bundle.LayoutNames {
		if n == req.LayoutName {
			found = true
			break
		}
	}
	s.bundleMu.RUnlock()
	if !found {
		return NewErrorResponse(fmt.Sprintf("unknown layout: %s", req.LayoutName))
	}

	// settings.json is the source of truth for default_layout (spec.md
	// §6.1); the daemon's reload path picks the change up, so the server
	// only needs to nudge it.
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

// SetManager swaps in a freshly constructed Manager after a restart
// (spec.md §4.5) — called by the daemon, never concurrently with a command
// in flight thanks to mgrMu.
func (s *Server) SetManager(mgr *wm.Manager) {
	s.mgrMu.Lock()
	s.mgr = mgr
	s.mgrMu.Unlock()
}

// SetBundle swaps in a freshly loaded configuration bundle after a reload.
func (s *Server) SetBundle(b *config.Bundle) {
	s.bundleMu.Lock()
	s.bundle = b
	s.bundleMu.Unlock()
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
