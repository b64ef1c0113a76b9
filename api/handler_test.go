package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
)

type fakeProcessor struct {
	result    contractx.RunResult
	err       error
	snapshot  *statex.RunState
	snapErr   error
	deleteErr error
	deleted   []string
	tickets   []contractx.Ticket
}

func (f *fakeProcessor) ProcessTicket(ctx context.Context, ticket contractx.Ticket) (contractx.RunResult, error) {
	f.tickets = append(f.tickets, ticket)
	if f.err != nil {
		return contractx.RunResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeProcessor) Snapshot(ctx context.Context, runID string) (*statex.RunState, error) {
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	if f.snapshot == nil || f.snapshot.RunID != runID {
		return nil, statex.ErrRunNotFound
	}
	return f.snapshot, nil
}

func (f *fakeProcessor) DeleteRun(ctx context.Context, runID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, runID)
	if f.snapshot != nil && f.snapshot.RunID == runID {
		f.snapshot = nil
	}
	return nil
}

func serve(t *testing.T, p *fakeProcessor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := NewServer(&Handler{Processor: p})
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func shippedResult() contractx.RunResult {
	return contractx.RunResult{
		RunID:    "run-1",
		Summary:  "Package late.",
		Category: contractx.CategoryShipping,
		OrderInfo: &contractx.OrderInfo{Record: &contractx.OrderRecord{
			OrderID: "O2001", Status: "shipped", Product: "Bolt Charger",
		}},
		KBSources:     []string{"Standard shipping takes 3-5 business days."},
		FinalResponse: "Your Bolt Charger has shipped.",
	}
}

func TestHandleBannerAndHealth(t *testing.T) {
	t.Parallel()

	rec := serve(t, &fakeProcessor{}, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), Banner) {
		t.Fatalf("banner missing from %q", rec.Body.String())
	}

	rec = serve(t, &fakeProcessor{}, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d", rec.Code)
	}
	if health := decodeBody[map[string]bool](t, rec); !health["ok"] || len(health) != 1 {
		t.Fatalf("unexpected health body: %v", health)
	}
}

func TestHandleTicketSuccess(t *testing.T) {
	t.Parallel()

	p := &fakeProcessor{result: shippedResult()}
	rec := serve(t, p, http.MethodPost, "/tickets", `{"query":"My package O2001 hasn't arrived","order_id":"O2001","run_id":"run-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	if len(p.tickets) != 1 {
		t.Fatalf("expected one ticket, got %d", len(p.tickets))
	}
	want := contractx.Ticket{Query: "My package O2001 hasn't arrived", OrderID: "O2001", RunID: "run-1"}
	if p.tickets[0] != want {
		t.Fatalf("ticket = %#v, want %#v", p.tickets[0], want)
	}

	body := decodeBody[map[string]any](t, rec)
	if body["category"] != "shipping" {
		t.Fatalf("category = %v", body["category"])
	}
	if body["final_response"] != "Your Bolt Charger has shipped." {
		t.Fatalf("final_response = %v", body["final_response"])
	}
	orderInfo, ok := body["order_info"].(map[string]any)
	if !ok {
		t.Fatalf("order_info must be an object, got %T", body["order_info"])
	}
	if orderInfo["status"] != "shipped" {
		t.Fatalf("order status = %v", orderInfo["status"])
	}
}

func TestHandleTicketNoOrderSerializesNull(t *testing.T) {
	t.Parallel()

	res := shippedResult()
	res.OrderInfo = nil
	rec := serve(t, &fakeProcessor{result: res}, http.MethodPost, "/tickets", `{"query":"update my account"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"order_info":null`) {
		t.Fatalf("expected null order_info in %s", rec.Body.String())
	}
}

func TestHandleTicketBadRequests(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{name: "missing query", body: `{"order_id":"O2001"}`},
		{name: "blank query", body: `{"query":"   "}`},
		{name: "malformed", body: `{"query":`},
	}
	for _, tc := range cases {
		p := &fakeProcessor{}
		rec := serve(t, p, http.MethodPost, "/tickets", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, rec.Code)
		}
		if len(p.tickets) != 0 {
			t.Fatalf("%s: processor must not run, got %d tickets", tc.name, len(p.tickets))
		}
	}
}

func TestHandleTicketStageFailure(t *testing.T) {
	t.Parallel()

	p := &fakeProcessor{err: &contractx.StageError{
		Stage: statex.StageClassify,
		Err:   fmt.Errorf("%w: connection refused", contractx.ErrModelInvoke),
	}}
	rec := serve(t, p, http.MethodPost, "/tickets", `{"query":"hello"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}

	body := decodeBody[ErrorResponse](t, rec)
	if body.Stage != statex.StageClassify {
		t.Fatalf("stage = %q", body.Stage)
	}
	if !strings.Contains(body.Error, "connection refused") {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestHandleTicketValidationAndUnknownErrors(t *testing.T) {
	t.Parallel()

	rec := serve(t, &fakeProcessor{err: fmt.Errorf("%w: run id is empty", contractx.ErrValidation)},
		http.MethodPost, "/tickets", `{"query":"hello"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("validation status = %d, want 400", rec.Code)
	}

	rec = serve(t, &fakeProcessor{err: errors.New("graph exploded")}, http.MethodPost, "/tickets", `{"query":"hello"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unknown error status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "graph exploded") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestHandleChat(t *testing.T) {
	t.Parallel()

	p := &fakeProcessor{result: shippedResult()}
	rec := serve(t, p, http.MethodPost, "/chat", `{"query":"Where is my order?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody[ChatResponse](t, rec); got.Response != "Your Bolt Charger has shipped." {
		t.Fatalf("response = %q", got.Response)
	}
	if p.tickets[0].OrderID != "" {
		t.Fatalf("chat must not forward an order id, got %q", p.tickets[0].OrderID)
	}

	rec = serve(t, &fakeProcessor{}, http.MethodPost, "/chat", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty chat status = %d, want 400", rec.Code)
	}
}

func TestHandleGetRun(t *testing.T) {
	t.Parallel()

	st := &statex.RunState{RunID: "run-1", Query: "hello", Stage: statex.StageDone, FinalResponse: "hi"}
	p := &fakeProcessor{snapshot: st}

	rec := serve(t, p, http.MethodGet, "/runs/run-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"final_response":"hi"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = serve(t, p, http.MethodGet, "/runs/run-2", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing run status = %d, want 404", rec.Code)
	}

	rec = serve(t, &fakeProcessor{snapErr: errors.New("redis down")}, http.MethodGet, "/runs/run-1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("store failure status = %d, want 500", rec.Code)
	}
}

func TestHandleDeleteRun(t *testing.T) {
	t.Parallel()

	p := &fakeProcessor{snapshot: &statex.RunState{RunID: "run-1", Stage: statex.StageDone}}

	rec := serve(t, p, http.MethodDelete, "/runs/run-1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(p.deleted) != 1 || p.deleted[0] != "run-1" {
		t.Fatalf("deleted = %v", p.deleted)
	}

	rec = serve(t, p, http.MethodGet, "/runs/run-1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted run status = %d, want 404", rec.Code)
	}

	rec = serve(t, &fakeProcessor{deleteErr: statex.ErrInvalidRun}, http.MethodDelete, "/runs/%20", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank id status = %d, want 400", rec.Code)
	}

	rec = serve(t, &fakeProcessor{deleteErr: errors.New("redis down")}, http.MethodDelete, "/runs/run-1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("store failure status = %d, want 500", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	rec := serve(t, &fakeProcessor{}, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatal("expected go runtime metrics")
	}
}
