package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func judgeServer(t *testing.T, pendingPolls int32, terminal pollResponse) (*httptest.Server, *int32) {
	t.Helper()

	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /submissions", func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotZero(t, req.LanguageID)
		_ = json.NewEncoder(w).Encode(submitResponse{Token: "tok-123"})
	})
	mux.HandleFunc("GET /submissions/tok-123", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		if n <= pendingPolls {
			_ = json.NewEncoder(w).Encode(pollResponse{Status: struct {
				ID          int    `json:"id"`
				Description string `json:"description"`
			}{ID: 2, Description: "Processing"}})
			return
		}
		_ = json.NewEncoder(w).Encode(terminal)
	})

	return httptest.NewServer(mux), &polls
}

func terminalResponse(statusID int, stdout, stderr string) pollResponse {
	var resp pollResponse
	resp.Status.ID = statusID
	resp.Status.Description = "Accepted"
	resp.Stdout = stdout
	resp.Stderr = stderr
	return resp
}

func TestJudgeWaitsThroughPendingPolls(t *testing.T) {
	server, polls := judgeServer(t, 2, terminalResponse(3, "42\n", ""))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:      server.URL,
		PollInterval: time.Millisecond,
		MaxAttempts:  10,
	}, server.Client(), zerolog.Nop())

	result, err := client.Judge(context.Background(), 71, "print(42)", "")
	require.NoError(t, err)
	require.Equal(t, "42\n", result.Stdout)
	require.Equal(t, 3, result.StatusID)
	require.Equal(t, "Accepted", result.StatusDescription)
	require.EqualValues(t, 3, *polls)
}

func TestJudgeTimesOutAfterAttemptBudget(t *testing.T) {
	server, polls := judgeServer(t, 1000, terminalResponse(3, "", ""))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:      server.URL,
		PollInterval: time.Millisecond,
		MaxAttempts:  5,
	}, server.Client(), zerolog.Nop())

	_, err := client.Judge(context.Background(), 71, "while True: pass", "")
	require.ErrorIs(t, err, ErrJudgeTimeout)
	require.EqualValues(t, 5, *polls)
}

func TestJudgeSubmitFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:      server.URL,
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
	}, server.Client(), zerolog.Nop())

	_, err := client.Judge(context.Background(), 71, "print(1)", "")
	require.ErrorIs(t, err, ErrJudgeUnavailable)
}

func TestJudgeMalformedSubmitResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:      server.URL,
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
	}, server.Client(), zerolog.Nop())

	_, err := client.Judge(context.Background(), 71, "print(1)", "")
	require.ErrorIs(t, err, ErrJudgeUnavailable)
}

func TestJudgeRespectsContextCancellation(t *testing.T) {
	server, _ := judgeServer(t, 1000, terminalResponse(3, "", ""))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:      server.URL,
		PollInterval: 50 * time.Millisecond,
		MaxAttempts:  100,
	}, server.Client(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Judge(ctx, 71, "print(1)", "")
	require.ErrorIs(t, err, context.Canceled)
}
