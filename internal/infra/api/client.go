package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
)

// Client talks to the quiz REST API. It implements app.QuestionSource and
// app.AnswerJudge, so verdicts come from the server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// NewClient builds a client for baseURL (e.g. http://localhost:8080).
// A nil httpClient gets a 10s timeout client.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type questionBody struct {
	Index int         `json:"index"`
	Mode  domain.Mode `json:"mode"`
}

type answerBody struct {
	QuestionID string `json:"questionId"`
	Choice     string `json:"choice"`
}

// NextQuestion fetches question req.Index of the session. Identical
// concurrent fetches share one request.
func (c *Client) NextQuestion(ctx context.Context, req app.QuestionRequest) (domain.Question, error) {
	if req.Credential.Token == "" {
		return domain.Question{}, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}
	key := req.SessionID + ":" + strconv.Itoa(req.Index)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		var q domain.Question
		path := "/api/sessions/" + url.PathEscape(req.SessionID) + "/questions"
		err := c.do(ctx, http.MethodPost, path, req.Credential.Token, questionBody{Index: req.Index, Mode: req.Mode}, &q)
		return q, err
	})
	if err != nil {
		return domain.Question{}, err
	}
	return v.(domain.Question), nil
}

// JudgeAnswer asks the server whether choice is correct.
func (c *Client) JudgeAnswer(ctx context.Context, req app.AnswerRequest) (domain.Verdict, error) {
	if req.Credential.Token == "" {
		return domain.Verdict{}, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}
	var v domain.Verdict
	path := "/api/sessions/" + url.PathEscape(req.SessionID) + "/answers"
	if err := c.do(ctx, http.MethodPost, path, req.Credential.Token, answerBody{QuestionID: req.QuestionID, Choice: req.Choice}, &v); err != nil {
		return domain.Verdict{}, err
	}
	return v, nil
}

// Practice returns a fetch-only source over the legacy practice endpoint.
// Questions carry their answer, so judging happens locally.
func (c *Client) Practice() app.QuestionSource {
	return practiceSource{client: c}
}

// PracticeQuestion is the legacy /api/get_question payload.
type PracticeQuestion struct {
	Question      string   `json:"question"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options"`
}

type practiceSource struct {
	client *Client
}

func (p practiceSource) NextQuestion(ctx context.Context, req app.QuestionRequest) (domain.Question, error) {
	var raw PracticeQuestion
	if err := p.client.do(ctx, http.MethodGet, "/api/get_question", req.Credential.Token, nil, &raw); err != nil {
		return domain.Question{}, err
	}
	return domain.Question{
		ID:            req.SessionID + "-" + strconv.Itoa(req.Index),
		Prompt:        raw.Question,
		Options:       raw.Options,
		CorrectAnswer: raw.CorrectAnswer,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrNetwork, path, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)
	msg := payload.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", domain.ErrNetwork, resp.StatusCode, msg)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
}
