package workflow

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/nodes"
	statex "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/state"
)

const nodeValidateTicket = "validate_ticket"

func (e *Engine) compileTicketGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeValidateTicket,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*statex.RunState, error) {
			st, err := nodex.ValidateTicket(in, e.now)
			if err != nil {
				return nil, e.fail(ctx, nodeValidateTicket, err)
			}
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidateTicket, err)
	}

	if err := graph.AddLambdaNode(statex.StageClassify,
		compose.InvokableLambda(e.stage(statex.StageClassify, func(ctx context.Context, in *statex.RunState) (*statex.RunState, error) {
			return nodex.Classify(ctx, in, e.classifier, e.prompts, e.cfg.CallTimeout)
		})),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", statex.StageClassify, err)
	}

	if err := graph.AddLambdaNode(statex.StageEnrichOrder,
		compose.InvokableLambda(e.stage(statex.StageEnrichOrder, func(ctx context.Context, in *statex.RunState) (*statex.RunState, error) {
			return nodex.EnrichOrder(ctx, in, e.orders, e.cfg.CallTimeout)
		})),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", statex.StageEnrichOrder, err)
	}

	if err := graph.AddLambdaNode(statex.StageRetrieveKnowledge,
		compose.InvokableLambda(e.stage(statex.StageRetrieveKnowledge, func(ctx context.Context, in *statex.RunState) (*statex.RunState, error) {
			return nodex.RetrieveKnowledge(ctx, in, e.retriever, e.cfg.TopK, e.cfg.CallTimeout)
		})),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", statex.StageRetrieveKnowledge, err)
	}

	if err := graph.AddLambdaNode(statex.StageDraftReply,
		compose.InvokableLambda(e.stage(statex.StageDraftReply, func(ctx context.Context, in *statex.RunState) (*statex.RunState, error) {
			return nodex.DraftReply(ctx, in, e.drafter, e.prompts, e.cfg.CallTimeout)
		})),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", statex.StageDraftReply, err)
	}

	if err := graph.AddLambdaNode(statex.StageFinalize,
		compose.InvokableLambda(func(ctx context.Context, in *statex.RunState) (nodex.GraphOutput, error) {
			st, err := e.stage(statex.StageFinalize, func(ctx context.Context, in *statex.RunState) (*statex.RunState, error) {
				return nodex.FinalizeResponse(in, e.prompts.Fallback)
			})(ctx, in)
			if err != nil {
				return nodex.GraphOutput{}, err
			}
			st.Complete(statex.StageDone, e.now())
			e.checkpoint(ctx, st)
			return nodex.GraphOutput{State: st}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", statex.StageFinalize, err)
	}

	edges := [][2]string{
		{compose.START, nodeValidateTicket},
		{nodeValidateTicket, statex.StageClassify},
		{statex.StageClassify, statex.StageEnrichOrder},
		{statex.StageEnrichOrder, statex.StageRetrieveKnowledge},
		{statex.StageRetrieveKnowledge, statex.StageDraftReply},
		{statex.StageDraftReply, statex.StageFinalize},
		{statex.StageFinalize, compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("workflow.process_ticket"))
	if err != nil {
		return nil, fmt.Errorf("compile ticket graph: %w", err)
	}
	return runner, nil
}
