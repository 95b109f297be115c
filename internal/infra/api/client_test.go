package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
)

func TestClientSendsBearerAndDecodes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions/s1/questions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body questionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Index != 2 || body.Mode != domain.ModeOpenEnded {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(domain.Question{ID: "q2", Prompt: "sin(30°)", Options: []string{"1/2", "0"}})
	})
	mux.HandleFunc("/api/sessions/s1/answers", func(w http.ResponseWriter, r *http.Request) {
		var body answerBody
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(domain.Verdict{IsCorrect: body.QuestionID == "q2" && body.Choice == "1/2"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL+"/", nil)
	cred := domain.Credential{Token: "tok"}
	ctx := context.Background()

	q, err := client.NextQuestion(ctx, app.QuestionRequest{Credential: cred, SessionID: "s1", Index: 2, Mode: domain.ModeOpenEnded})
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if q.ID != "q2" || len(q.Options) != 2 || q.CorrectAnswer != "" {
		t.Fatalf("unexpected question %+v", q)
	}
	v, err := client.JudgeAnswer(ctx, app.AnswerRequest{Credential: cred, SessionID: "s1", QuestionID: "q2", Choice: "1/2"})
	if err != nil || !v.IsCorrect {
		t.Fatalf("expected correct verdict, got %+v %v", v, err)
	}
}

func TestClientMapsFailures(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"error":"nope"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	req := app.QuestionRequest{Credential: domain.Credential{Token: "tok"}, SessionID: "s1", Index: 1}
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusBadGateway, domain.ErrNetwork},
	}
	for _, tc := range cases {
		status = tc.status
		if _, err := client.NextQuestion(context.Background(), req); !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}

	if _, err := client.NextQuestion(context.Background(), app.QuestionRequest{SessionID: "s1"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected missing token to be unauthorized, got %v", err)
	}
}

func TestClientNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := NewClient(addr, nil)
	_, err := client.JudgeAnswer(context.Background(), app.AnswerRequest{Credential: domain.Credential{Token: "tok"}, SessionID: "s1"})
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestPracticeSourceCarriesAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/get_question" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(PracticeQuestion{Question: "cos(0°)", CorrectAnswer: "1", Options: []string{"0", "1", "-1", "1/2"}})
	}))
	defer server.Close()

	source := NewClient(server.URL, nil).Practice()
	if _, ok := source.(app.AnswerJudge); ok {
		t.Fatalf("practice source must judge locally")
	}
	q, err := source.NextQuestion(context.Background(), app.QuestionRequest{SessionID: "s1", Index: 3})
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if q.CorrectAnswer != "1" || q.Prompt != "cos(0°)" || q.ID != "s1-3" {
		t.Fatalf("unexpected practice question %+v", q)
	}
}
