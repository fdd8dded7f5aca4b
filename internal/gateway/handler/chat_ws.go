package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"docchat/internal/chat"
	"docchat/internal/gateway/middleware"
	"docchat/internal/proxy"
	"docchat/internal/uistream"
)

const (
	chatWSWriteWait = 10 * time.Second
	chatWSPongWait  = 60 * time.Second
	chatWSPingEvery = (chatWSPongWait * 9) / 10

	// chatWSDone is the socket counterpart of the SSE [DONE] terminator.
	chatWSDone uistream.EventType = "done"
)

var chatWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type chatWSOutbound struct {
	uistream.Event
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// chatWSTransport feeds stream events to the socket writer goroutine.
type chatWSTransport struct {
	ctx context.Context
	out chan<- chatWSOutbound
}

func (t *chatWSTransport) Send(ev uistream.Event) error {
	return t.push(chatWSOutbound{Event: ev})
}

func (t *chatWSTransport) Done() error {
	return t.push(chatWSOutbound{Event: uistream.Event{Type: chatWSDone}})
}

func (t *chatWSTransport) push(out chatWSOutbound) error {
	select {
	case t.out <- out:
		return nil
	case <-t.ctx.Done():
		return t.ctx.Err()
	}
}

// HandleChatWS serves GET /api/chat/ws. The client sends one frame with the
// same body as POST /api/chat and receives the UI events as JSON frames.
func (s *Service) HandleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := chatWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(s.maxBodyBytes)
	if err := conn.SetReadDeadline(time.Now().Add(chatWSPongWait)); err != nil {
		s.log.Printf("chat ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(chatWSPongWait))
	})

	_, payload, err := conn.ReadMessage()
	if err != nil {
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			s.log.Printf("chat ws read request failed: %v", err)
		}
		return
	}

	out := make(chan chatWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(chatWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-out:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(chatWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Keep reading so control frames are processed; a client close cancels
	// the exchange.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	s.serveChatWS(ctx, middleware.ClientIDFrom(r.Context()), payload, &chatWSTransport{ctx: ctx, out: out})
	close(out)
	<-writerDone
}

func (s *Service) serveChatWS(ctx context.Context, clientID string, payload []byte, t *chatWSTransport) {
	reject := func(code, msg string, status int) {
		_ = t.push(chatWSOutbound{
			Event:   uistream.Event{Type: uistream.EventError, ErrorText: msg},
			Code:    code,
			Message: msg,
		})
		s.metrics.RecordRequest(RouteChatWS, status)
	}

	d, err := s.admission.Check(ctx, clientID)
	if err != nil {
		s.log.Printf("admission check failed for %s: %v", clientID, err)
		reject("internal", proxy.ErrorMessage, http.StatusInternalServerError)
		return
	}
	s.metrics.RecordAdmission(d.Allowed)
	if !d.Allowed {
		reject("rate_limited", "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	req, err := chat.Validate(payload)
	if err != nil {
		s.log.Printf("chat ws: invalid request from %s: %v", clientID, err)
		reject("invalid_request", invalidRequestBody, http.StatusBadRequest)
		return
	}

	stream := uistream.New(t)
	err = s.streamer.Stream(ctx, req, stream.Delta)
	if err == nil {
		err = stream.Finish()
	} else {
		err = stream.Fail(proxy.ErrorMessage)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Printf("chat ws: deliver stream to %s: %v", clientID, err)
	}
	s.metrics.RecordRequest(RouteChatWS, http.StatusOK)
}
