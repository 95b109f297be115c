package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"quiz-runner/internal/app"
	"quiz-runner/internal/auth"
	"quiz-runner/internal/domain"
)

// PingMessage is returned by GET /api/ping.
const PingMessage = "backend service is running!"

type contextKey string

const credentialKey contextKey = "credential"

// NewRouter exposes the question service over REST. ws may be nil.
func NewRouter(service *app.QuestionService, authority *auth.Authority, ws *WSHandler) *mux.Router {
	h := &apiHandler{service: service}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/ping", h.ping).Methods(http.MethodGet)
	r.HandleFunc("/api/get_question", h.practiceQuestion).Methods(http.MethodGet)

	sessions := r.PathPrefix("/api/sessions/{sessionID}").Subrouter()
	sessions.Use(requireAuth(authority))
	sessions.HandleFunc("/questions", h.nextQuestion).Methods(http.MethodPost)
	sessions.HandleFunc("/answers", h.judgeAnswer).Methods(http.MethodPost)

	if ws != nil {
		r.HandleFunc("/ws", ws.ServeWS)
	}
	return r
}

type apiHandler struct {
	service *app.QuestionService
}

type legacyQuestion struct {
	Question      string   `json:"question"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options"`
}

type questionRequest struct {
	Index int    `json:"index"`
	Mode  string `json:"mode"`
}

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Choice     string `json:"choice"`
}

func (h *apiHandler) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": PingMessage})
}

func (h *apiHandler) practiceQuestion(w http.ResponseWriter, r *http.Request) {
	q := h.service.PracticeQuestion()
	writeJSON(w, http.StatusOK, legacyQuestion{Question: q.Prompt, CorrectAnswer: q.CorrectAnswer, Options: q.Options})
}

func (h *apiHandler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	var body questionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req := app.QuestionRequest{
		Credential: credentialFrom(r.Context()),
		SessionID:  mux.Vars(r)["sessionID"],
		Index:      body.Index,
	}
	if body.Mode != "" {
		mode, err := domain.ParseMode(body.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Mode = mode
	}
	q, err := h.service.NextQuestion(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *apiHandler) judgeAnswer(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v, err := h.service.JudgeAnswer(r.Context(), app.AnswerRequest{
		Credential: credentialFrom(r.Context()),
		SessionID:  mux.Vars(r)["sessionID"],
		QuestionID: body.QuestionID,
		Choice:     body.Choice,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func requireAuth(authority *auth.Authority) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			cred, err := authority.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), credentialKey, cred)))
		})
	}
}

func credentialFrom(ctx context.Context) domain.Credential {
	cred, _ := ctx.Value(credentialKey).(domain.Credential)
	return cred
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuestionNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("api error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
