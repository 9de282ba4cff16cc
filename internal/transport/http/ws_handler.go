package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/engine"
)

type WSHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option *int   `json:"option,omitempty"`
	Text   string `json:"text,omitempty"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// attempt session. One connection drives one attempt; the session itself
// survives reconnects until the service forgets it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	token := bearerToken(r)
	if quizID == "" || token == "" {
		http.Error(w, "missing quizId or token", http.StatusBadRequest)
		return
	}

	session, err := h.service.Begin(r.Context(), quizID, token)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrAuthRequired):
			status = http.StatusUnauthorized
		case errors.Is(err, domain.ErrQuizNotFound):
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r, session, inbound); err != nil {
			if !deliver(send, writerDone, outboundMessage[any]{Type: "error", Payload: errorFor(err)}) {
				break
			}
			continue
		}
		if inbound.Type == "submit" || inbound.Type == "next" {
			if snap := session.Snapshot(); snap.Screen == domain.ScreenScored {
				if !deliver(send, writerDone, outboundMessage[any]{Type: "submitted", Payload: snap}) {
					break
				}
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch routes one inbound command to the session.
func (h *WSHandler) dispatch(r *http.Request, session *engine.Session, inbound inboundMessage) error {
	switch inbound.Type {
	case "start", "retake":
		return session.Start()
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return domain.ErrEmptyAnswer
		}
		sel := domain.EmptySelection()
		if payload.Option != nil {
			sel.Option = *payload.Option
		}
		sel.Text = payload.Text
		return session.SelectAnswer(sel)
	case "next":
		return session.GoNext(r.Context())
	case "previous":
		return session.GoPrevious()
	case "jump":
		var payload jumpPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return domain.ErrQuestionIndex
		}
		return session.JumpTo(payload.Index)
	case "hint":
		return session.RevealHint()
	case "fifty":
		return session.FiftyFifty()
	case "submit":
		return session.Submit(r.Context())
	case "review":
		return session.EnterReview()
	case "endReview":
		return session.ExitReview()
	case "exit":
		return session.Exit()
	default:
		return errUnsupported
	}
}

var errUnsupported = errors.New("unsupported message type")

// deliver queues an outbound message, giving up once the writer goroutine
// has exited on a write error so the reader cannot wedge on the channel.
func deliver(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// errorFor maps engine errors to stable client-facing codes.
func errorFor(err error) errorPayload {
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrEmptyAnswer):
		code = "empty_answer"
	case errors.Is(err, domain.ErrIncompleteAttempt):
		code = "incomplete_attempt"
	case errors.Is(err, domain.ErrInvalidState):
		code = "invalid_state"
	case errors.Is(err, domain.ErrSubmitInFlight):
		code = "submit_in_flight"
	case errors.Is(err, domain.ErrQuestionIndex):
		code = "bad_index"
	case errors.Is(err, domain.ErrLifelineUnavailable):
		code = "lifeline_unavailable"
	case errors.Is(err, domain.ErrAuthRequired):
		code = "auth_required"
	case errors.Is(err, errUnsupported):
		code = "unsupported"
	}
	return errorPayload{Code: code, Message: err.Error()}
}

func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	return strings.TrimPrefix(header, "Bearer ")
}
