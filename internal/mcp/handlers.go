package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/lanequote/internal/errors"
	"github.com/hpungsan/lanequote/internal/ops"
	"github.com/hpungsan/lanequote/internal/quote"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc *ops.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *ops.Service) *Handlers {
	return &Handlers{svc: svc}
}

// BatchRequest represents the arguments for quote_batch.
type BatchRequest struct {
	Path       string `json:"path"`
	Currency   string `json:"currency"`
	PreparedBy string `json:"prepared_by"`
	quote.Client
	Save *bool `json:"save,omitempty"`
}

// SummaryRequest represents the arguments for client_summary.
type SummaryRequest struct {
	Company string `json:"company"`
}

// batchResponse is quote_batch's result. The workbook itself stays on disk.
type batchResponse struct {
	*ops.BatchOutput
	Counts map[string]int `json:"counts"`
}

// HandleQuoteLane handles the quote_lane tool call.
func (h *Handlers) HandleQuoteLane(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.QuoteInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Quote(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleQuoteBatch handles the quote_batch tool call.
func (h *Handlers) HandleQuoteBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BatchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}

	save := true
	if input.Save != nil {
		save = *input.Save
	}

	result, err := h.svc.Batch(ctx, ops.BatchInput{
		Path:       input.Path,
		Currency:   input.Currency,
		PreparedBy: input.PreparedBy,
		Client:     input.Client,
		Save:       save,
	})
	if err != nil {
		return errorResult(err), nil
	}

	counts := make(map[string]int)
	for _, r := range result.Rows {
		counts[r.Status]++
	}
	return successResult(batchResponse{BatchOutput: result, Counts: counts})
}

// HandleQuoteTerms handles the quote_terms tool call.
func (h *Handlers) HandleQuoteTerms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.TermsInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Terms(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleLaneDistance handles the lane_distance tool call.
func (h *Handlers) HandleLaneDistance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[quote.Lane](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Distance(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleClientSummary handles the client_summary tool call.
func (h *Handlers) HandleClientSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SummaryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Summary(ctx, input.Company)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRequestLog handles the request_log tool call.
func (h *Handlers) HandleRequestLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.LogInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.svc.Log(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleQuoteCurrencies handles the quote_currencies tool call.
func (h *Handlers) HandleQuoteCurrencies(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := h.svc.Currencies(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// decode unmarshals MCP request arguments into a typed struct.
// Unknown arguments are rejected so misspelled fields do not silently fall back to defaults.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("invalid arguments: %w", err)
	}
	return result, nil
}

// errorResult creates an MCP error result from any error.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var qErr *errors.QuoteError
	if stderrors.As(err, &qErr) && qErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    qErr.Code,
			"message": qErr.Message,
			"status":  qErr.Status,
		}
		if qErr.Details != nil {
			errorObj["details"] = qErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
