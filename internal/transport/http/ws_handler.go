package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-runner/internal/app"
	"quiz-runner/internal/auth"
	"quiz-runner/internal/domain"
)

// WSHandler runs one quiz session engine per websocket connection.
type WSHandler struct {
	source     app.QuestionSource
	authority  *auth.Authority
	reporter   app.Reporter
	runnerOpts []app.Option
	upgrader   websocket.Upgrader
}

func NewWSHandler(source app.QuestionSource, authority *auth.Authority, reporter app.Reporter, runnerOpts ...app.Option) *WSHandler {
	return &WSHandler{
		source:     source,
		authority:  authority,
		reporter:   reporter,
		runnerOpts: runnerOpts,
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

type startPayload struct {
	Mode               string `json:"mode"`
	SecondsPerQuestion int    `json:"secondsPerQuestion"`
	TotalQuestions     int    `json:"totalQuestions"`
}

type answerPayload struct {
	Choice string `json:"choice"`
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type questionMessage struct {
	Index     int             `json:"index"`
	Remaining int             `json:"remaining"`
	Question  domain.Question `json:"question"`
}

type tickMessage struct {
	Index     int `json:"index"`
	Remaining int `json:"remaining"`
}

type outcomeMessage struct {
	Outcome       domain.Outcome `json:"outcome"`
	CorrectAnswer string         `json:"correctAnswer,omitempty"`
}

type faultMessage struct {
	Message   string `json:"message"`
	State     string `json:"state"`
	Retryable bool   `json:"retryable"`
}

type resultMessage struct {
	Result      domain.Result `json:"result"`
	Accuracy    float64       `json:"accuracy"`
	AverageTime float64       `json:"averageTime"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS authenticates the token query parameter (or bearer header),
// upgrades the connection and relays engine events to the client.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	cred, err := h.authority.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-closeSignals:
		case <-writerDone:
		}
	}
	pushError := func(err error) {
		push(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	observer := app.ObserverFunc(func(ev app.Event) {
		if msg, ok := eventMessage(ev); ok {
			push(msg)
		}
	})
	opts := append([]app.Option{app.WithObserver(observer)}, h.runnerOpts...)
	runner := app.NewRunner(h.source, h.reporter, opts...)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.handle(ctx, runner, cred, inbound); err != nil {
			pushError(err)
		}
	}

	runner.Abandon()
	close(closeSignals)
	<-writerDone
}

func (h *WSHandler) handle(ctx context.Context, runner *app.Runner, cred domain.Credential, inbound inboundMessage) error {
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid start payload")
		}
		mode, err := domain.ParseMode(payload.Mode)
		if err != nil {
			return err
		}
		return runner.Start(ctx, cred, app.Config{
			Mode:               mode,
			SecondsPerQuestion: payload.SecondsPerQuestion,
			TotalQuestions:     payload.TotalQuestions,
		})
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid answer payload")
		}
		return runner.Submit(payload.Choice)
	case "next":
		return runner.Next()
	case "end":
		return runner.End()
	case "retry":
		return runner.Retry()
	default:
		return errors.New("unsupported message type")
	}
}

func eventMessage(ev app.Event) (outboundMessage, bool) {
	switch ev.Kind {
	case app.EventQuestion:
		return outboundMessage{Type: "question", Payload: questionMessage{
			Index:     ev.Index,
			Remaining: ev.Remaining,
			Question:  *ev.Question,
		}}, true
	case app.EventTick:
		return outboundMessage{Type: "tick", Payload: tickMessage{Index: ev.Index, Remaining: ev.Remaining}}, true
	case app.EventOutcome:
		return outboundMessage{Type: "outcome", Payload: outcomeMessage{Outcome: *ev.Outcome, CorrectAnswer: ev.CorrectAnswer}}, true
	case app.EventFault:
		return outboundMessage{Type: "fault", Payload: faultMessage{
			Message:   ev.Err.Error(),
			State:     ev.State.String(),
			Retryable: ev.State == app.StateLoading && !errors.Is(ev.Err, domain.ErrUnauthorized),
		}}, true
	case app.EventResult:
		return outboundMessage{Type: "result", Payload: resultMessage{
			Result:      *ev.Result,
			Accuracy:    ev.Result.Accuracy(),
			AverageTime: ev.Result.AverageTime(),
		}}, true
	}
	return outboundMessage{}, false
}
