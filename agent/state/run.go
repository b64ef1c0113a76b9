package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
)

// Stage names, in execution order.
const (
	StageClassify          = "classify"
	StageEnrichOrder       = "enrich_order"
	StageRetrieveKnowledge = "retrieve_knowledge"
	StageDraftReply        = "draft_reply"
	StageFinalize          = "finalize_response"
	StageDone              = "done"
)

var StageOrder = []string{
	StageClassify,
	StageEnrichOrder,
	StageRetrieveKnowledge,
	StageDraftReply,
	StageFinalize,
}

var (
	ErrRunNotFound = errors.New("run state not found")
	ErrNilRunState = errors.New("run state is nil")
	ErrInvalidRun  = errors.New("run id is empty")
)

// RunState carries one ticket through the pipeline. Each stage owns the
// fields it writes; later stages only read them.
type RunState struct {
	RunID   string `json:"run_id"`
	Query   string `json:"query"`
	OrderID string `json:"order_id,omitempty"`

	// classify
	Summary  string             `json:"summary,omitempty"`
	Category contractx.Category `json:"category,omitempty"`

	// enrich_order; nil exactly when OrderID is empty
	OrderInfo *contractx.OrderInfo `json:"order_info"`

	// retrieve_knowledge
	KBSources []string `json:"kb_sources"`

	// draft_reply
	Draft string `json:"draft,omitempty"`

	// finalize_response
	FinalResponse string `json:"final_response,omitempty"`

	// Stage is the last completed stage.
	Stage     string    `json:"stage,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewRunState(runID, query, orderID string, now time.Time) *RunState {
	return &RunState{
		RunID:     runID,
		Query:     query,
		OrderID:   orderID,
		StartedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *RunState) HasOrderID() bool {
	return s != nil && strings.TrimSpace(s.OrderID) != ""
}

func (s *RunState) Done() bool {
	return s != nil && s.Stage == StageDone
}

// Complete marks stage as finished.
func (s *RunState) Complete(stage string, now time.Time) {
	s.Stage = stage
	s.UpdatedAt = now.UTC()
}

func (s *RunState) Validate() error {
	if s == nil {
		return ErrNilRunState
	}
	if strings.TrimSpace(s.RunID) == "" {
		return ErrInvalidRun
	}
	if strings.TrimSpace(s.Query) == "" {
		return fmt.Errorf("%w: query is empty", contractx.ErrValidation)
	}
	if !s.HasOrderID() && s.OrderInfo != nil {
		return fmt.Errorf("%w: order_info set without order_id", contractx.ErrValidation)
	}
	if s.Stage != "" && s.Stage != StageDone && stageIndex(s.Stage) < 0 {
		return fmt.Errorf("%w: unknown stage=%q", contractx.ErrValidation, s.Stage)
	}
	return nil
}

func (s *RunState) Result() contractx.RunResult {
	sources := s.KBSources
	if sources == nil {
		sources = []string{}
	}
	return contractx.RunResult{
		RunID:         s.RunID,
		Summary:       s.Summary,
		Category:      s.Category,
		OrderInfo:     s.OrderInfo,
		KBSources:     sources,
		FinalResponse: s.FinalResponse,
	}
}

func stageIndex(stage string) int {
	for i, s := range StageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}
