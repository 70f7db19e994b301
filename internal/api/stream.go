package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"platewise/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is one frame sent on the plan stream
type StreamMessage struct {
	Type  string             `json:"type"`
	Index int                `json:"index,omitempty"`
	Plan  *models.PlanResult `json:"plan,omitempty"`
	Count int                `json:"count,omitempty"`
	Error string             `json:"error,omitempty"`
}

// Stream message types
const (
	messagePlan  = "plan"
	messageDone  = "done"
	messageError = "error"
)

// streamConn serves one websocket client. Every text message received is a
// plan request; plans are pushed as they are produced.
type streamConn struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc := &streamConn{
		conn:   conn,
		send:   make(chan []byte, 16),
		server: s,
		ctx:    ctx,
		cancel: cancel,
	}

	go sc.writePump()
	go sc.readPump()
}

// readPump reads plan requests until the client goes away
func (sc *streamConn) readPump() {
	defer func() {
		sc.cancel()
		sc.wg.Wait()
		close(sc.send)
	}()

	sc.conn.SetReadLimit(64 * 1024)
	sc.conn.SetReadDeadline(time.Now().Add(pongWait))
	sc.conn.SetPongHandler(func(string) error {
		sc.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := sc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				sc.server.logger.Warn("websocket error", "error", err)
			}
			return
		}
		sc.handleMessage(message)
	}
}

// writePump is the connection's only writer
func (sc *streamConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sc.conn.Close()
	}()

	for {
		select {
		case message, ok := <-sc.send:
			sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sc.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sc.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				sc.cancel()
				return
			}
		case <-ticker.C:
			sc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				sc.cancel()
				return
			}
		}
	}
}

func (sc *streamConn) handleMessage(message []byte) {
	var body planBody
	if err := json.Unmarshal(message, &body); err != nil {
		sc.sendError("Invalid parameter value: " + err.Error())
		return
	}
	s := sc.server
	n, err := body.numPlans(s.cfg.Planner.NumPlans, s.cfg.Planner.MaxPlans)
	if err != nil {
		sc.sendError(err.Error())
		return
	}
	cat := s.holder.Get()
	if cat == nil {
		sc.sendError("Optimizer not initialized")
		return
	}
	req := body.request(s.defaults)

	sc.wg.Add(1)
	go func() {
		defer sc.wg.Done()
		plans, err := s.optimizer.GeneratePlansFunc(sc.ctx, cat, req, n, func(i int, plan *models.PlanResult) error {
			return sc.sendMessage(StreamMessage{Type: messagePlan, Index: i, Plan: plan})
		})
		if err != nil {
			if sc.ctx.Err() == nil {
				sc.sendError(err.Error())
			}
			return
		}
		sc.sendMessage(StreamMessage{Type: messageDone, Count: len(plans)})
	}()
}

// sendMessage queues msg, giving up once the connection is closing
func (sc *streamConn) sendMessage(msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case sc.send <- data:
		return nil
	case <-sc.ctx.Done():
		return sc.ctx.Err()
	}
}

func (sc *streamConn) sendError(message string) {
	if err := sc.sendMessage(StreamMessage{Type: messageError, Error: message}); err != nil {
		sc.server.logger.Debug("dropping stream error", "error", err)
	}
}
