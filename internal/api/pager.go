package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/carnival-games/carnival/internal/database"
	"github.com/carnival-games/carnival/internal/event"
	"github.com/carnival-games/carnival/internal/types"
)

const (
	// maximum page body length in runes, anything longer is truncated
	maxPageLength = 280

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type SendPageRequest struct {
	Body string `json:"body"`
}

type PagerMessagesResponse struct {
	Messages []types.PagerMessage `json:"messages"`
}

func toPagerMessage(msg database.PagerMessage) types.PagerMessage {
	return types.PagerMessage{
		Id:          msg.Id,
		OfficerId:   msg.OfficerId,
		OfficerName: msg.OfficerName,
		Body:        msg.Body,
		CreatedAt:   msg.CreatedAt,
	}
}

func (s *CarnivalApp) listPages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.db.ListPagerMessages()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	resp := PagerMessagesResponse{Messages: []types.PagerMessage{}}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, toPagerMessage(msg))
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *CarnivalApp) sendPage(w http.ResponseWriter, r *http.Request) {
	officer, ok := s.currentOfficer(w, r)
	if !ok {
		return
	}

	var req SendPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Body == "" {
		errResp := NewValidationError("body is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// truncate on rune boundaries: a byte slice could split a multi-byte
	// character and hand the database invalid UTF-8
	body := req.Body
	if utf8.RuneCountInString(body) > maxPageLength {
		body = string([]rune(body)[:maxPageLength])
	}

	msg, err := s.db.CreatePagerMessage(officer.Id, body)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.pager.Emit(msg)
	if s.stats != nil {
		s.stats.Incr(metricPagesSent)
	}

	s.writeJson(w, http.StatusCreated, toPagerMessage(msg))
}

// servePagerWs upgrades the connection and pushes pager messages to the
// officer as they are sent.
func (s *CarnivalApp) servePagerWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("pager ws upgrade: %v", err)
		return
	}

	incoming := event.NewQueue[database.PagerMessage]()
	subId := s.pager.Subscribe(func(msg database.PagerMessage) {
		incoming.Enqueue(msg)
	})

	if s.stats != nil {
		s.stats.Incr(metricActivePagerClients)
	}

	// the request context dies when this handler returns, so the pumps
	// get their own, cancelled by the read side on disconnect
	ctx, cancel := context.WithCancel(context.Background())
	go s.pagerReadPump(conn, cancel)
	go s.pagerWritePump(ctx, conn, incoming, subId)
}

// pagerReadPump discards inbound frames but keeps the read side alive for
// pong handling, cancelling the writer when the peer goes away.
func (s *CarnivalApp) pagerReadPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Printf("pager ws read: %v", err)
			}
			return
		}
	}
}

func (s *CarnivalApp) pagerWritePump(ctx context.Context, conn *websocket.Conn, incoming *event.Queue[database.PagerMessage], subId int) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.pager.Unsubscribe(subId)
		conn.Close()
		if s.stats != nil {
			s.stats.Decr(metricActivePagerClients)
		}
	}()

	next := make(chan database.PagerMessage)
	go func() {
		defer close(next)
		for {
			msg, err := incoming.Next(ctx)
			if err != nil {
				return
			}
			select {
			case next <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-next:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(toPagerMessage(msg)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
