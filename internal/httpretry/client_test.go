package httpretry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"
)

// mockDoer scripts HTTP responses for testing the retry policy.
type mockDoer struct {
	DoFunc func(req *http.Request) (*http.Response, error)
	calls  int
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	return m.DoFunc(req)
}

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://api.test/notas", nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	return req
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	mock := &mockDoer{}
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		if mock.calls < 3 {
			return nil, errors.New("connection reset")
		}
		return newResponse(http.StatusOK, "[]"), nil
	}

	rc := NewRetryClient(mock, 3, time.Millisecond)
	resp, err := rc.Do(newRequest(t))
	if err != nil {
		t.Fatalf("Do() error = %v, want success on final attempt", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if mock.calls != 3 {
		t.Errorf("attempts = %d, want 3", mock.calls)
	}
}

func TestDo_ExhaustsAfterExactlyMaxAttempts(t *testing.T) {
	mock := &mockDoer{}
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: i/o timeout")
	}

	rc := NewRetryClient(mock, 3, time.Millisecond)
	_, err := rc.Do(newRequest(t))
	if err == nil {
		t.Fatal("Do() succeeded, want terminal failure")
	}
	if mock.calls != 3 {
		t.Errorf("attempts = %d, want exactly 3", mock.calls)
	}
}

func TestDo_RetriesOnNon2xxStatus(t *testing.T) {
	mock := &mockDoer{}
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		if mock.calls < 2 {
			return newResponse(http.StatusServiceUnavailable, "busy"), nil
		}
		return newResponse(http.StatusOK, "[]"), nil
	}

	rc := NewRetryClient(mock, 3, time.Millisecond)
	resp, err := rc.Do(newRequest(t))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if mock.calls != 2 {
		t.Errorf("attempts = %d, want 2", mock.calls)
	}
}

func TestDo_ReturnsLastResponseOnPersistentBadStatus(t *testing.T) {
	mock := &mockDoer{}
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusForbidden, "invalid key"), nil
	}

	rc := NewRetryClient(mock, 3, time.Millisecond)
	resp, err := rc.Do(newRequest(t))
	if err != nil {
		t.Fatalf("Do() error = %v, want the final response back", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if mock.calls != 3 {
		t.Errorf("attempts = %d, want 3", mock.calls)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "invalid key" {
		t.Errorf("final response body = %q, want it intact", body)
	}
}

func TestDo_NoRetryAfterContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := &mockDoer{}
	mock.DoFunc = func(req *http.Request) (*http.Response, error) {
		cancel()
		return nil, errors.New("connection refused")
	}

	req := newRequest(t).WithContext(ctx)
	rc := NewRetryClient(mock, 3, time.Millisecond)
	if _, err := rc.Do(req); err == nil {
		t.Fatal("Do() succeeded, want error")
	}
	if mock.calls != 1 {
		t.Errorf("attempts = %d, want 1 after cancellation", mock.calls)
	}
}
