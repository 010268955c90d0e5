package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"thegrind.cafe/internal/protocol"
	"thegrind.cafe/internal/sim/world"
)

const (
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
	applyTimeout = 5 * time.Second
)

type Server struct {
	world     *world.World
	log       *log.Logger
	validator *protocol.ActionValidator

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	active   atomic.Int64
	results  resultCache
}

func NewServer(w *world.World, logger *log.Logger) (*Server, error) {
	v, err := protocol.NewActionValidator()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		world:     w,
		log:       logger,
		validator: v,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}, nil
}

// Sessions reports the number of connected clients.
func (s *Server) Sessions() int { return int(s.active.Load()) }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess, err := s.handshake(conn)
		if err != nil {
			s.log.Debug("handshake failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		s.active.Add(1)
		defer s.active.Add(-1)
		s.log.Info("session opened", "session", sess.id, "client", sess.client)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		states, unsubscribe, err := s.world.Subscribe(ctx)
		if err != nil {
			return
		}
		defer unsubscribe()

		results := make(chan protocol.ResultMsg, sess.maxQueue)
		done := make(chan struct{})
		go func() {
			defer close(done)
			s.writeLoop(ctx, cancel, conn, states, results)
		}()

		s.readLoop(ctx, conn, sess, results)
		cancel()
		<-done
		s.log.Info("session closed", "session", sess.id)
	}
}

// writeLoop is the only writer on conn after the handshake.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, states <-chan world.State, results <-chan protocol.ResultMsg) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-results:
			if err := writeJSON(conn, res); err != nil {
				return
			}
		case st, ok := <-states:
			if !ok {
				return
			}
			raw, err := json.Marshal(st)
			if err != nil {
				s.log.Error("encode state", "err", err)
				continue
			}
			msg := protocol.StateMsg{Type: protocol.TypeState, ProtocolVersion: protocol.Version, Tick: st.Tick, State: raw}
			if err := writeJSON(conn, msg); err != nil {
				return
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *session, results chan<- protocol.ResultMsg) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeAction {
			res := protocol.NewResult("", false, protocol.ErrProtoBadRequest, "expected ACTION")
			if !deliver(ctx, results, res) {
				return
			}
			continue
		}
		act, err := s.validator.Decode(msg)
		if err != nil {
			res := protocol.NewResult(actionID(msg), false, protocol.ErrBadRequest, err.Error())
			if !deliver(ctx, results, res) {
				return
			}
			continue
		}
		res := s.handleAction(ctx, sess, act)
		if !deliver(ctx, results, res) {
			return
		}
	}
}

func (s *Server) handleAction(ctx context.Context, sess *session, act protocol.ActionMsg) protocol.ResultMsg {
	now := s.world.CurrentTick()
	if res, ok := s.results.get(sess.client, act.ID, now); ok {
		return res
	}
	if !sess.allow(time.Now()) {
		res := protocol.NewResult(act.ID, false, protocol.ErrRateLimited, "too many actions")
		res.Tick = now
		return res
	}
	res := s.dispatch(ctx, sess, act)
	res.Tick = s.world.CurrentTick()
	s.results.put(sess.client, res, res.Tick)
	return res
}

func deliver(ctx context.Context, results chan<- protocol.ResultMsg, res protocol.ResultMsg) bool {
	select {
	case results <- res:
		return true
	case <-ctx.Done():
		return false
	}
}

// actionID recovers the id of an ACTION that failed validation so the client
// can still correlate the RESULT.
func actionID(raw []byte) string {
	var m struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &m)
	return m.ID
}

func (s *Server) handshake(conn *websocket.Conn) (*session, error) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil, fmt.Errorf("expected HELLO")
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return nil, err
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil, fmt.Errorf("protocol_version %q", hello.ProtocolVersion)
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}
	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}

	sess := &session{
		id:       fmt.Sprintf("S%d", s.nextID.Add(1)),
		client:   hello.ClientName,
		maxQueue: maxQ,
	}

	cats := s.world.Engine().Catalogs()
	refs := make([]protocol.DigestRef, 0, 5)
	for _, d := range cats.Digests() {
		refs = append(refs, protocol.DigestRef{Name: d.Name, Digest: d.Digest, Count: d.Count})
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		SaveID:          s.world.SaveID(),
		Params: protocol.CafeParams{
			DayTicks:       s.world.Engine().Tuning().DayTicks,
			TickIntervalMS: int(s.world.TickInterval() / time.Millisecond),
		},
		Catalogs: refs,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil, err
	}
	return sess, nil
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
