package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lintang-b-s/streetmap/pkg/engine/courier"
	"go.uber.org/zap"
)

var errSessionFinished = errors.New("courier session already sent its result")

type wsConn struct {
	io.Reader
	io.Writer
	io.Closer
}

// writeWait bounds every websocket write so a stalled client can not hold a session forever.
const writeWait = 10 * time.Second

// Session is one websocket client that asked for a streamed courier route.
type Session struct {
	wmu      sync.Mutex
	conn     io.ReadWriteCloser
	netConn  net.Conn
	finished bool
	cancel   context.CancelFunc

	id  uint
	hub *Hub
}

func (s *Session) readRequest() (*courierRouteRequest, error) {
	for {
		h, r, err := wsutil.NextReader(s.conn, ws.StateServerSide)
		if err != nil {
			return nil, err
		}
		if h.OpCode.IsControl() {
			if err := s.handleControl(h, r); err != nil {
				return nil, err
			}
			continue
		}

		req := &courierRouteRequest{}
		decoder := json.NewDecoder(r)
		if err := decoder.Decode(req); err != nil {
			return nil, err
		}
		return req, nil
	}
}

func (s *Session) handleControl(h ws.Header, r io.Reader) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.setWriteDeadline()
	return wsutil.ControlFrameHandler(s.conn, ws.StateServerSide)(h, r)
}

// watchClose reads the client side until it closes or fails, then cancels the session.
func (s *Session) watchClose() {
	defer s.cancel()
	for {
		h, r, err := wsutil.NextReader(s.conn, ws.StateServerSide)
		if err != nil {
			return
		}
		if h.OpCode.IsControl() {
			if err := s.handleControl(h, r); err != nil {
				return
			}
			continue
		}
		if _, err := io.Copy(io.Discard, r); err != nil {
			return
		}
	}
}

func (s *Session) setWriteDeadline() {
	if s.netConn != nil {
		s.netConn.SetWriteDeadline(time.Now().Add(writeWait))
	}
}

// write sends x as one text frame. final marks the last event of the session; events written after it are
// dropped. A failed write cancels the session.
func (s *Session) write(x interface{}, final bool) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if s.finished {
		return errSessionFinished
	}
	s.finished = final

	s.setWriteDeadline()
	w := wsutil.NewWriter(s.conn, ws.StateServerSide, ws.OpText)
	if err := json.NewEncoder(w).Encode(x); err != nil {
		s.cancel()
		return err
	}
	if err := w.Flush(); err != nil {
		s.cancel()
		return err
	}
	return nil
}

func (s *Session) writeError(status int, err error) error {
	return s.write(courierEvent{
		Type:  eventError,
		Error: &errorBody{Code: http.StatusText(status), Message: err.Error()},
	}, true)
}

// PlanCourierRoute reads one courier request, streams every improvement the optimizer finds and finishes
// with the result (or an error event) followed by a close frame. The plan is cancelled as soon as the
// client goes away or a write fails.
func (s *Session) PlanCourierRoute(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel

	req, err := s.readRequest()
	if err != nil {
		return err
	}

	if err := validateRequest(req); err != nil {
		return s.writeError(http.StatusBadRequest, err)
	}

	go s.watchClose()

	route, err := s.hub.courierService.PlanRoute(ctx, req.ToCourierRequest(), func(imp courier.Improvement) {
		if math.IsInf(imp.Cost, 0) || math.IsNaN(imp.Cost) {
			return
		}
		if err := s.write(courierEvent{
			Type:      eventImprovement,
			Chain:     imp.Chain,
			Cost:      imp.Cost,
			ElapsedMs: imp.Elapsed.Milliseconds(),
		}, false); err != nil {
			s.hub.log.Debug("dropping courier improvement", zap.Uint("session", s.id), zap.Error(err))
		}
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return s.writeError(statusCode(err), err)
	}

	resp := NewCourierRouteResponse(route)
	if err := s.write(courierEvent{Type: eventResult, Route: &resp}, true); err != nil {
		return err
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	s.setWriteDeadline()
	return ws.WriteFrame(s.conn, ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
}

// Hub keeps track of the open courier websocket sessions so they can be closed on shutdown.
type Hub struct {
	mu             sync.RWMutex
	seq            uint
	ns             map[uint]*Session
	courierService CourierService
	log            *zap.Logger
}

func NewHub(courierService CourierService, log *zap.Logger) *Hub {
	return &Hub{
		ns:             make(map[uint]*Session),
		courierService: courierService,
		log:            log,
	}
}

// Register wraps a hijacked connection. r holds the bytes buffered during the upgrade.
func (h *Hub) Register(conn net.Conn, r io.Reader) *Session {
	session := &Session{
		hub:     h,
		conn:    wsConn{Reader: r, Writer: conn, Closer: conn},
		netConn: conn,
		cancel:  func() {},
	}

	h.mu.Lock()
	session.id = h.seq
	h.ns[session.id] = session
	h.seq++
	h.mu.Unlock()

	return session
}

// Remove closes the session connection and forgets it.
func (h *Hub) Remove(session *Session) {
	h.mu.Lock()
	_, ok := h.ns[session.id]
	delete(h.ns, session.id)
	h.mu.Unlock()

	if ok {
		session.conn.Close()
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ns)
}

func (h *Hub) RemoveAllSessions() {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.ns))
	for _, s := range h.ns {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		h.Remove(s)
	}
}
