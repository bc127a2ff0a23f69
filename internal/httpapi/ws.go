package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avitale/eduassist/internal/gateway"
	"github.com/avitale/eduassist/internal/protocol"
)

// handleChatWS runs the streaming chat loop: client_chat messages in,
// coalesced assistant_text_delta frames and a turn end out. One completion
// streams at a time per connection; a client_control "stop" cancels it.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if _, err := s.sessions.Get(sessionID); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 256)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	send := func(msg any) {
		select {
		case <-ctx.Done():
		case outbound <- msg:
		}
	}

	var (
		turnMu     sync.Mutex
		turnCancel context.CancelFunc
		turnWG     sync.WaitGroup
	)
	stopTurn := func() {
		turnMu.Lock()
		if turnCancel != nil {
			turnCancel()
		}
		turnMu.Unlock()
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "api",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}

		switch msg := parsed.(type) {
		case protocol.ClientChat:
			if msg.SessionID != sessionID {
				send(protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sessionID,
					Code:      "session_mismatch",
					Source:    "api",
					Retryable: false,
					Detail:    "chat message addressed to a different session",
				})
				continue
			}

			turnMu.Lock()
			if turnCancel != nil {
				turnMu.Unlock()
				send(protocol.ErrorEvent{
					Type:      protocol.TypeErrorEvent,
					SessionID: sessionID,
					Code:      "busy",
					Source:    "api",
					Retryable: true,
					Detail:    "a completion is already streaming on this connection",
				})
				continue
			}
			chatCtx, chatCancel := context.WithCancel(ctx)
			turnCancel = chatCancel
			turnMu.Unlock()

			turnWG.Add(1)
			go func(msg protocol.ClientChat) {
				defer turnWG.Done()
				defer func() {
					chatCancel()
					turnMu.Lock()
					turnCancel = nil
					turnMu.Unlock()
				}()
				s.streamChatTurn(chatCtx, sessionID, msg, send)
			}(msg)

		case protocol.ClientControl:
			if msg.Action == "stop" {
				stopTurn()
			}
		}
	}

	cancel()
	stopTurn()
	turnWG.Wait()
	close(outbound)
	<-writerDone
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

func (s *Server) streamChatTurn(ctx context.Context, sessionID string, msg protocol.ClientChat, send func(any)) {
	coalescer := protocol.NewCoalescer()
	emit := func(chunks []string) {
		for _, chunk := range chunks {
			send(protocol.AssistantTextDelta{
				Type:      protocol.TypeAssistantTextDelta,
				SessionID: sessionID,
				TextDelta: chunk,
			})
		}
	}

	res, err := s.assistant.Chat(ctx, sessionID, msg.Text, msg.Persona, msg.Language, func(delta string) error {
		emit(coalescer.Push(delta))
		return ctx.Err()
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			send(protocol.AssistantTurnEnd{
				Type:      protocol.TypeAssistantTurnEnd,
				SessionID: sessionID,
				Reason:    "cancelled",
			})
			return
		}
		code, retryable := "chat_failed", false
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			code, retryable = gwErr.Code, gwErr.Retryable
		}
		send(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: sessionID,
			Code:      code,
			Source:    "gateway",
			Retryable: retryable,
			Detail:    err.Error(),
		})
		return
	}

	emit(coalescer.Finalize())
	send(protocol.AssistantTurnEnd{
		Type:      protocol.TypeAssistantTurnEnd,
		SessionID: sessionID,
		TurnID:    res.TurnID,
		Reason:    "completed",
	})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientChat:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.AssistantTextDelta:
		return m.Type, true
	case protocol.AssistantTurnEnd:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
