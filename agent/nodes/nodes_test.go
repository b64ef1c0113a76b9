package nodes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	promptx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/prompt"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
)

type fakeGenerator struct {
	reply   func(prompt string) (string, error)
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.reply == nil {
		return prompt, nil
	}
	return f.reply(prompt)
}

type fakeOrders struct {
	rec   contractx.OrderRecord
	err   error
	block bool
	calls int
}

func (f *fakeOrders) Lookup(ctx context.Context, orderID string) (contractx.OrderRecord, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return contractx.OrderRecord{}, ctx.Err()
	}
	if f.err != nil {
		return contractx.OrderRecord{}, f.err
	}
	return f.rec, nil
}

type fakeRetriever struct {
	snippets []contractx.Snippet
	err      error
	lastK    int
}

func (f *fakeRetriever) Search(ctx context.Context, text string, k int) ([]contractx.Snippet, error) {
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.snippets, nil
}

func newState(orderID string) *statex.RunState {
	return statex.NewRunState("run-1", "My package O2001 hasn't arrived", orderID, time.Now())
}

func TestValidateTicket(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	if _, err := ValidateTicket(GraphInput{RunID: "r", Query: "   "}, now); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if _, err := ValidateTicket(GraphInput{Query: "hi"}, now); !errors.Is(err, ErrInvalidRunID) {
		t.Fatalf("expected ErrInvalidRunID, got %v", err)
	}

	st, err := ValidateTicket(GraphInput{RunID: "r", Query: " hi ", OrderID: "  "}, now)
	if err != nil {
		t.Fatalf("ValidateTicket() error = %v", err)
	}
	if st.Query != "hi" || st.HasOrderID() {
		t.Fatalf("unexpected state: %#v", st)
	}
}

func TestClassifyNormalizesCategory(t *testing.T) {
	t.Parallel()

	prompts := promptx.LoadPromptSet()
	for raw, want := range map[string]contractx.Category{
		"shipping":                contractx.CategoryShipping,
		"":                        contractx.CategoryGeneral,
		"I am not sure, honestly": contractx.CategoryGeneral,
		"Intent: Refund.":         contractx.CategoryRefund,
	} {
		gen := &fakeGenerator{reply: func(prompt string) (string, error) {
			if strings.HasPrefix(prompt, "Classify") {
				return raw, nil
			}
			return " a late package ", nil
		}}

		st, err := Classify(context.Background(), newState(""), gen, prompts, time.Second)
		if err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
		if st.Category != want {
			t.Fatalf("Classify(%q).Category = %q, want %q", raw, st.Category, want)
		}
		if st.Summary != "a late package" {
			t.Fatalf("unexpected summary: %q", st.Summary)
		}
		if len(gen.prompts) != 2 {
			t.Fatalf("expected two generator calls, got %d", len(gen.prompts))
		}
	}
}

func TestClassifyGeneratorFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("ollama down")
	gen := &fakeGenerator{reply: func(string) (string, error) { return "", boom }}

	_, err := Classify(context.Background(), newState(""), gen, promptx.LoadPromptSet(), time.Second)
	if !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestEnrichOrderWithoutOrderIDSkipsLookup(t *testing.T) {
	t.Parallel()

	orders := &fakeOrders{}
	st, err := EnrichOrder(context.Background(), newState(""), orders, time.Second)
	if err != nil {
		t.Fatalf("EnrichOrder() error = %v", err)
	}
	if st.OrderInfo != nil {
		t.Fatalf("expected nil order info, got %#v", st.OrderInfo)
	}
	if orders.calls != 0 {
		t.Fatalf("expected no lookup calls, got %d", orders.calls)
	}
}

func TestEnrichOrderOutcomes(t *testing.T) {
	t.Parallel()

	rec := contractx.OrderRecord{OrderID: "O2001", Status: "shipped", Product: "Bolt Charger"}

	cases := []struct {
		name      string
		orders    *fakeOrders
		wantError string
	}{
		{name: "found", orders: &fakeOrders{rec: rec}},
		{name: "not found", orders: &fakeOrders{err: contractx.ErrOrderNotFound}, wantError: "Order not found"},
		{name: "transport", orders: &fakeOrders{err: errors.New("dial tcp: connection refused")}, wantError: "dial tcp: connection refused"},
		{name: "timeout", orders: &fakeOrders{block: true}, wantError: context.DeadlineExceeded.Error()},
	}

	for _, tc := range cases {
		st, err := EnrichOrder(context.Background(), newState("O2001"), tc.orders, 20*time.Millisecond)
		if err != nil {
			t.Fatalf("%s: EnrichOrder() error = %v", tc.name, err)
		}
		if tc.orders.calls != 1 {
			t.Fatalf("%s: expected one lookup call, got %d", tc.name, tc.orders.calls)
		}
		if st.OrderInfo == nil {
			t.Fatalf("%s: expected order info", tc.name)
		}
		if tc.wantError == "" {
			if st.OrderInfo.Failed() || st.OrderInfo.Record.Product != "Bolt Charger" {
				t.Fatalf("%s: unexpected order info %#v", tc.name, st.OrderInfo)
			}
			continue
		}
		if !st.OrderInfo.Failed() || st.OrderInfo.Error != tc.wantError {
			t.Fatalf("%s: unexpected marker %#v, want error %q", tc.name, st.OrderInfo, tc.wantError)
		}
	}
}

type panickyOrders struct{}

func (panickyOrders) Lookup(context.Context, string) (contractx.OrderRecord, error) {
	panic("nil map")
}

func TestEnrichOrderRecoversPanics(t *testing.T) {
	t.Parallel()

	st, err := EnrichOrder(context.Background(), newState("O1"), panickyOrders{}, time.Second)
	if err != nil {
		t.Fatalf("EnrichOrder() error = %v", err)
	}
	if !st.OrderInfo.Failed() || !strings.Contains(st.OrderInfo.Error, "nil map") {
		t.Fatalf("unexpected marker: %#v", st.OrderInfo)
	}
}

func TestRetrieveKnowledge(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{snippets: []contractx.Snippet{
		{ID: "a", Text: " Shipping takes 3-5 business days. ", Score: 0.9},
		{ID: "b", Text: "   "},
		{ID: "c", Text: "Tracking updates every 24h.", Score: 0.5},
		{ID: "d", Text: "extra"},
	}}

	st, err := RetrieveKnowledge(context.Background(), newState(""), retriever, 0, time.Second)
	if err != nil {
		t.Fatalf("RetrieveKnowledge() error = %v", err)
	}
	if retriever.lastK != DefaultTopK {
		t.Fatalf("expected k=%d, got %d", DefaultTopK, retriever.lastK)
	}
	want := []string{" Shipping takes 3-5 business days. ", "   "}
	if strings.Join(st.KBSources, "|") != strings.Join(want, "|") {
		t.Fatalf("kb sources must keep every hit verbatim up to k: %#v", st.KBSources)
	}

	st, err = RetrieveKnowledge(context.Background(), newState(""), retriever, 3, time.Second)
	if err != nil {
		t.Fatalf("RetrieveKnowledge() error = %v", err)
	}
	if len(st.KBSources) != 3 || st.KBSources[1] != "   " || st.KBSources[2] != "Tracking updates every 24h." {
		t.Fatalf("blank hit must not be skipped: %#v", st.KBSources)
	}
}

func TestRetrieveKnowledgeEmptyAndFailure(t *testing.T) {
	t.Parallel()

	st, err := RetrieveKnowledge(context.Background(), newState(""), &fakeRetriever{}, 2, time.Second)
	if err != nil {
		t.Fatalf("RetrieveKnowledge() error = %v", err)
	}
	if st.KBSources == nil || len(st.KBSources) != 0 {
		t.Fatalf("expected empty non-nil kb sources, got %#v", st.KBSources)
	}

	_, err = RetrieveKnowledge(context.Background(), newState(""), &fakeRetriever{err: errors.New("index offline")}, 2, time.Second)
	if !errors.Is(err, contractx.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestBuildDraftPromptSectionOrder(t *testing.T) {
	t.Parallel()

	st := newState("O2001")
	st.Summary = "late package"
	st.Category = contractx.CategoryShipping
	st.OrderInfo = &contractx.OrderInfo{Record: &contractx.OrderRecord{OrderID: "O2001", Status: "shipped", Product: "Bolt Charger"}}
	st.KBSources = []string{"Shipping policy A", "Shipping policy B"}

	prompt, err := BuildDraftPrompt(st, "Draft a reply.")
	if err != nil {
		t.Fatalf("BuildDraftPrompt() error = %v", err)
	}

	order := []string{"User query:", "Ticket summary: late package", "Category: shipping", "Order Info:", `"status":"shipped"`, "KB Info:", "Shipping policy B", "Draft a reply."}
	last := -1
	for _, part := range order {
		idx := strings.Index(prompt, part)
		if idx < 0 {
			t.Fatalf("prompt missing %q:\n%s", part, prompt)
		}
		if idx < last {
			t.Fatalf("prompt part %q out of order:\n%s", part, prompt)
		}
		last = idx
	}
}

func TestBuildDraftPromptOmitsAbsentSections(t *testing.T) {
	t.Parallel()

	st := newState("")
	st.KBSources = []string{}

	prompt, err := BuildDraftPrompt(st, "")
	if err != nil {
		t.Fatalf("BuildDraftPrompt() error = %v", err)
	}
	for _, absent := range []string{"Context:", "Order Info:", "KB Info:"} {
		if strings.Contains(prompt, absent) {
			t.Fatalf("prompt must not contain %q:\n%s", absent, prompt)
		}
	}
}

func TestDraftReplyAndFinalize(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{reply: func(string) (string, error) { return "  Your order has shipped.  ", nil }}
	st, err := DraftReply(context.Background(), newState(""), gen, promptx.LoadPromptSet(), time.Second)
	if err != nil {
		t.Fatalf("DraftReply() error = %v", err)
	}
	if st.Draft != "Your order has shipped." {
		t.Fatalf("unexpected draft: %q", st.Draft)
	}

	st, err = FinalizeResponse(st, "")
	if err != nil {
		t.Fatalf("FinalizeResponse() error = %v", err)
	}
	if st.FinalResponse != "Your order has shipped." {
		t.Fatalf("unexpected final response: %q", st.FinalResponse)
	}
}

func TestFinalizeResponseFallback(t *testing.T) {
	t.Parallel()

	st, err := FinalizeResponse(newState(""), "")
	if err != nil {
		t.Fatalf("FinalizeResponse() error = %v", err)
	}
	if st.FinalResponse != FallbackResponse {
		t.Fatalf("FinalResponse = %q, want %q", st.FinalResponse, FallbackResponse)
	}
}
