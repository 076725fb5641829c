package handler_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medlens/reflection/backend/internal/handler"
	"github.com/medlens/reflection/backend/internal/model/reflection"
	"github.com/medlens/reflection/backend/internal/service/pipeline"
	"github.com/medlens/reflection/backend/internal/service/responder"
	"github.com/medlens/reflection/backend/internal/service/session"
)

// stubResponder replies per agent role. When gate is set, discussion calls
// block until the gate closes, which keeps sessions in a running state for
// as long as a test needs.
type stubResponder struct {
	gate          chan struct{}
	discussionErr error
}

func (s *stubResponder) Ask(ctx context.Context, req responder.Request) (string, error) {
	switch req.Agent {
	case reflection.AgentCollector:
		return `[{"need": "Need A", "summary": "s", "medical_insights": "m", "tech_insights": "t", "strategy": "st"}]`, nil
	case reflection.AgentEvaluator:
		return `{"feasibility_score": 8, "impact_score": 8, "innovation_score": 8, "resource_score": 8}`, nil
	default:
		if s.gate != nil {
			select {
			case <-s.gate:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		if s.discussionErr != nil {
			return "", s.discussionErr
		}
		return "insight", nil
	}
}

func newServer(t *testing.T, stub responder.Client) *httptest.Server {
	t.Helper()
	svc := pipeline.NewService(session.NewStore(), stub)
	srv := httptest.NewServer(handler.NewRouter(svc))
	t.Cleanup(srv.Close)
	return srv
}

func submit(t *testing.T, srv *httptest.Server, query string, maxRounds int) string {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"query": query, "maxRounds": maxRounds})
	resp, err := http.Post(srv.URL+"/api/reflection", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit err: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("submit status = %d, body = %s", resp.StatusCode, raw)
	}

	var payload struct {
		SessionID string `json:"sessionId"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if payload.SessionID == "" {
		t.Fatal("submit response missing sessionId")
	}
	if payload.Status != string(reflection.StatusQueued) {
		t.Fatalf("submit status = %q", payload.Status)
	}
	return payload.SessionID
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func waitCompleted(t *testing.T, srv *httptest.Server, id string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var result struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		getJSON(t, srv.URL+"/api/reflection/"+id, &result)
		switch reflection.Status(result.Status) {
		case reflection.StatusCompleted:
			return
		case reflection.StatusError:
			t.Fatalf("session failed: %s", result.Error)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session never completed")
}

func TestSubmitValidation(t *testing.T) {
	srv := newServer(t, &stubResponder{})

	cases := []struct {
		name string
		body string
	}{
		{"empty query", `{"query": "", "maxRounds": 3}`},
		{"rounds too high", `{"query": "q", "maxRounds": 11}`},
		{"rounds negative", `{"query": "q", "maxRounds": -1}`},
		{"malformed json", `{"query": `},
	}
	for _, tc := range cases {
		resp, err := http.Post(srv.URL+"/api/reflection", "application/json", strings.NewReader(tc.body))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, resp.StatusCode)
		}
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newServer(t, &stubResponder{})

	for _, path := range []string{
		"/api/reflection/nope",
		"/api/evaluation/nope",
		"/api/prioritization/nope",
		"/api/reflection/nope/stream",
	} {
		if status := getJSON(t, srv.URL+path, nil); status != http.StatusNotFound {
			t.Fatalf("GET %s status = %d, want 404", path, status)
		}
	}
}

func TestResultAfterCompletion(t *testing.T) {
	srv := newServer(t, &stubResponder{})

	id := submit(t, srv, "why is the ER congested?", 2)
	waitCompleted(t, srv, id)

	var result struct {
		Status           string                        `json:"status"`
		DiscussionRounds int                           `json:"discussionRounds"`
		MedicalInsights  []string                      `json:"medicalInsights"`
		Needs            []reflection.NeedRecord       `json:"needs"`
		FullConversation []reflection.ConversationTurn `json:"fullConversation"`
	}
	if status := getJSON(t, srv.URL+"/api/reflection/"+id, &result); status != http.StatusOK {
		t.Fatalf("result status = %d", status)
	}

	if result.DiscussionRounds != 2 || len(result.FullConversation) != 4 {
		t.Fatalf("conversation shape wrong: rounds=%d turns=%d", result.DiscussionRounds, len(result.FullConversation))
	}
	if len(result.MedicalInsights) != 2 {
		t.Fatalf("medical insights = %d", len(result.MedicalInsights))
	}
	if len(result.Needs) != 1 || result.Needs[0].Need != "Need A" {
		t.Fatalf("needs wrong: %+v", result.Needs)
	}
}

func TestEvaluationStillProcessingIs202(t *testing.T) {
	gate := make(chan struct{})
	stub := &stubResponder{gate: gate}
	srv := newServer(t, stub)

	id := submit(t, srv, "query", 1)

	if status := getJSON(t, srv.URL+"/api/evaluation/"+id, nil); status != http.StatusAccepted {
		t.Fatalf("in-flight evaluation status = %d, want 202", status)
	}
	if status := getJSON(t, srv.URL+"/api/prioritization/"+id, nil); status != http.StatusAccepted {
		t.Fatalf("in-flight prioritization status = %d, want 202", status)
	}

	close(gate)
	waitCompleted(t, srv, id)

	var report struct {
		Evaluations      []reflection.Evaluation `json:"evaluations"`
		TopPriorityNeeds []string                `json:"topPriorityNeeds"`
	}
	if status := getJSON(t, srv.URL+"/api/evaluation/"+id, &report); status != http.StatusOK {
		t.Fatalf("evaluation status = %d", status)
	}
	if len(report.Evaluations) != 1 || report.Evaluations[0].OverallScore != 8.0 {
		t.Fatalf("evaluation wrong: %+v", report.Evaluations)
	}

	var prioritization struct {
		PrioritizedNeeds []reflection.PrioritizedNeed `json:"prioritizedNeeds"`
	}
	if status := getJSON(t, srv.URL+"/api/prioritization/"+id, &prioritization); status != http.StatusOK {
		t.Fatalf("prioritization status = %d", status)
	}
	if len(prioritization.PrioritizedNeeds) != 1 || prioritization.PrioritizedNeeds[0].Rank != 1 {
		t.Fatalf("prioritization wrong: %+v", prioritization.PrioritizedNeeds)
	}
}

func TestEvaluationAfterFailureIs500(t *testing.T) {
	stub := &stubResponder{discussionErr: responder.ErrUnavailable}
	srv := newServer(t, stub)

	id := submit(t, srv, "query", 1)

	deadline := time.Now().Add(5 * time.Second)
	for {
		var result struct {
			Status string `json:"status"`
		}
		getJSON(t, srv.URL+"/api/reflection/"+id, &result)
		if result.Status == string(reflection.StatusError) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session never failed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if status := getJSON(t, srv.URL+"/api/evaluation/"+id, nil); status != http.StatusInternalServerError {
		t.Fatalf("failed-session evaluation status = %d, want 500", status)
	}
}

func TestSessionsList(t *testing.T) {
	srv := newServer(t, &stubResponder{})

	id := submit(t, srv, "query", 1)
	waitCompleted(t, srv, id)

	var summaries map[string]struct {
		Status            string `json:"status"`
		HasEvaluation     bool   `json:"hasEvaluation"`
		HasPrioritization bool   `json:"hasPrioritization"`
	}
	if status := getJSON(t, srv.URL+"/api/sessions", &summaries); status != http.StatusOK {
		t.Fatalf("sessions status = %d", status)
	}

	summary, ok := summaries[id]
	if !ok {
		t.Fatalf("session %s missing from listing", id)
	}
	if summary.Status != string(reflection.StatusCompleted) || !summary.HasEvaluation || !summary.HasPrioritization {
		t.Fatalf("summary wrong: %+v", summary)
	}
}

func TestSSEStreamReplaysToTerminal(t *testing.T) {
	srv := newServer(t, &stubResponder{})

	id := submit(t, srv, "query", 1)
	waitCompleted(t, srv, id)

	resp, err := http.Get(srv.URL + "/api/reflection/" + id + "/stream?replay=true")
	if err != nil {
		t.Fatalf("stream err: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	var types []reflection.EventType
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev reflection.ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		types = append(types, ev.EventType)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan err: %v", err)
	}

	// One round: two thinking pairs, collecting pair, terminal.
	if len(types) != 7 {
		t.Fatalf("expected 7 events, got %d: %v", len(types), types)
	}
	if types[len(types)-1] != reflection.EventSessionCompleted {
		t.Fatalf("stream did not end with session_completed: %v", types)
	}
}

func TestSSELiveStreamOnFinishedSessionSendsTerminalEvent(t *testing.T) {
	srv := newServer(t, &stubResponder{})

	id := submit(t, srv, "query", 1)
	waitCompleted(t, srv, id)

	// No replay: history is skipped, but the stream must still report that
	// the session already ended.
	resp, err := http.Get(srv.URL + "/api/reflection/" + id + "/stream")
	if err != nil {
		t.Fatalf("stream err: %v", err)
	}
	defer resp.Body.Close()

	var types []reflection.EventType
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev reflection.ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		types = append(types, ev.EventType)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan err: %v", err)
	}

	if len(types) != 1 || types[0] != reflection.EventSessionCompleted {
		t.Fatalf("expected only session_completed, got %v", types)
	}
}

func TestHealthAndInfo(t *testing.T) {
	srv := newServer(t, &stubResponder{})

	var health struct {
		Status string `json:"status"`
	}
	if status := getJSON(t, srv.URL+"/health", &health); status != http.StatusOK || health.Status != "healthy" {
		t.Fatalf("health = %d %+v", status, health)
	}
	if status := getJSON(t, srv.URL+"/api", nil); status != http.StatusOK {
		t.Fatalf("info status = %d", status)
	}
	if status := getJSON(t, srv.URL+"/metrics", nil); status == http.StatusNotFound {
		t.Fatal("metrics endpoint not mounted")
	}
}

func TestNilServiceReturns503(t *testing.T) {
	srv := httptest.NewServer(handler.NewRouter(nil))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/reflection", "application/json", strings.NewReader(`{"query": "q"}`))
	if err != nil {
		t.Fatalf("submit err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}

	if status := getJSON(t, srv.URL+"/health", nil); status != http.StatusOK {
		t.Fatalf("health must stay up without a pipeline, got %d", status)
	}
}
