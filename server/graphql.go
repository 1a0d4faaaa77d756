package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/mo"

	"github.com/cyp0633/libslots/internal/httpclient"
	"github.com/cyp0633/libslots/slotclient"
	"github.com/cyp0633/libslots/storage"
)

// GraphQL error codes reported in extensions.code.
const (
	codeBadUserInput  = "BAD_USER_INPUT"
	codeNotFound      = "NOT_FOUND"
	codeUnknownOp     = "UNKNOWN_OPERATION"
	codeInternalError = "INTERNAL_SERVER_ERROR"
)

// Root fields of the two mutations.
const (
	fieldBulkUpdate   = "opportunitySlotsBulkUpdate"
	fieldStatusChange = "slotHostingStatusUpdate"
)

type graphQLRequest struct {
	Query         string `json:"query"`
	OperationName string `json:"operationName"`
	Variables     struct {
		Input json.RawMessage `json:"input"`
	} `json:"variables"`
}

// graphQLError is returned by resolvers to become a response error.
type graphQLError struct {
	code    string
	message string
}

func (e *graphQLError) Error() string {
	return e.message
}

func userInputError(format string, args ...any) error {
	return &graphQLError{code: codeBadUserInput, message: fmt.Sprintf(format, args...)}
}

// handleGraphQL executes the slot mutations. Only the two operations the slot
// client sends are understood; selection sets are not interpreted and the full
// payload is always returned.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req graphQLRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendError(w, err)
		return
	}

	operation := req.OperationName
	if operation == "" {
		operation = operationFromQuery(req.Query)
	}

	s.logger.Debug("graphql request", "operation", operation)

	var (
		data any
		err  error
	)
	switch operation {
	case slotclient.OperationBulkUpdate:
		data, err = s.resolveBulkUpdate(r.Context(), req.Variables.Input)
	case slotclient.OperationStatusChange:
		data, err = s.resolveStatusChange(r.Context(), req.Variables.Input)
	default:
		err = &graphQLError{code: codeUnknownOp, message: fmt.Sprintf("unknown operation %q", operation)}
	}

	if err != nil {
		s.writeGraphQLError(w, operation, err)
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		s.sendError(w, &HTTPError{Status: http.StatusInternalServerError, Message: "Failed to encode data", Err: err})
		return
	}
	s.writeJSON(w, http.StatusOK, httpclient.Response{Data: raw})
}

// operationFromQuery picks the operation by the root field the document
// selects.
func operationFromQuery(query string) string {
	switch {
	case strings.Contains(query, fieldBulkUpdate):
		return slotclient.OperationBulkUpdate
	case strings.Contains(query, fieldStatusChange):
		return slotclient.OperationStatusChange
	default:
		return ""
	}
}

func (s *Server) writeGraphQLError(w http.ResponseWriter, operation string, err error) {
	gqlErr := &graphQLError{code: codeInternalError, message: "internal error"}
	var resolverErr *graphQLError
	switch {
	case errors.As(err, &resolverErr):
		gqlErr = resolverErr
	case storage.IsType(err, storage.ErrNotFound):
		gqlErr = &graphQLError{code: codeNotFound, message: err.Error()}
	case storage.IsType(err, storage.ErrInvalidInput):
		gqlErr = &graphQLError{code: codeBadUserInput, message: err.Error()}
	default:
		s.logger.Error("graphql operation failed", "operation", operation, "error", err)
	}

	s.logger.Debug("graphql error", "operation", operation, "code", gqlErr.code, "message", gqlErr.message)
	s.writeJSON(w, http.StatusOK, httpclient.Response{
		Errors: []httpclient.GraphQLError{{
			Message:    gqlErr.message,
			Extensions: map[string]any{"code": gqlErr.code},
		}},
	})
}

// resolveBulkUpdate checks every update before writing anything, then stores
// all updates in one atomic write followed by the creates. A create that fails
// is reported in its result entry instead of failing the whole operation.
func (s *Server) resolveBulkUpdate(ctx context.Context, rawInput json.RawMessage) (any, error) {
	var input slotclient.BulkUpdateInput
	if err := decodeInput(rawInput, &input); err != nil {
		return nil, err
	}
	if input.OpportunityID == "" {
		return nil, userInputError("opportunityId is required")
	}

	loc := s.cal.Location()
	batch, err := slotclient.DecodeBatch(input, loc)
	if err != nil {
		return nil, userInputError("%v", err)
	}

	updates := make([]*storage.Slot, 0, len(batch.Update))
	for i, u := range batch.Update {
		existing, err := s.storage.GetSlot(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("update[%d]: %w", i, err)
		}
		if existing.OpportunityID != batch.OpportunityID {
			return nil, userInputError("update[%d]: slot %s belongs to another opportunity", i, u.ID)
		}
		existing.StartAt = u.StartAt
		existing.EndAt = u.EndAt
		if err := storage.Validate(existing); err != nil {
			return nil, fmt.Errorf("update[%d]: %w", i, err)
		}
		updates = append(updates, existing)
	}

	payload := slotclient.BulkUpdatePayload{
		Created: make([]slotclient.CreatedPayload, 0, len(batch.Create)),
		Updated: make([]slotclient.SlotPayload, 0, len(updates)),
	}

	if err := s.storage.UpdateSlots(ctx, updates); err != nil {
		return nil, err
	}
	for _, rec := range updates {
		payload.Updated = append(payload.Updated, slotclient.EncodeSlot(rec.Persisted(), loc))
	}

	for i, c := range batch.Create {
		rec := &storage.Slot{
			OpportunityID: batch.OpportunityID,
			StartAt:       c.StartAt,
			EndAt:         c.EndAt,
			Capacity:      c.Capacity,
		}
		if err := s.storage.CreateSlot(ctx, rec); err != nil {
			s.logger.Debug("create rejected", "index", i, "error", err)
			msg := err.Error()
			payload.Created = append(payload.Created, slotclient.CreatedPayload{Error: &msg})
			continue
		}
		created := slotclient.EncodeSlot(rec.Persisted(), loc)
		payload.Created = append(payload.Created, slotclient.CreatedPayload{Slot: &created})
	}

	s.logger.Info("bulk slot update",
		"opportunity_id", batch.OpportunityID,
		"created", len(batch.Create),
		"updated", len(updates))

	return map[string]any{fieldBulkUpdate: payload}, nil
}

// resolveStatusChange stores the new status together with the range and
// capacity the client sent. A capacity of 0 on a slot without one leaves it
// unset.
func (s *Server) resolveStatusChange(ctx context.Context, rawInput json.RawMessage) (any, error) {
	var input slotclient.StatusChangeInput
	if err := decodeInput(rawInput, &input); err != nil {
		return nil, err
	}
	if input.ID == "" {
		return nil, userInputError("id is required")
	}

	change, err := slotclient.DecodeStatusChange(input, s.cal.Location())
	if err != nil {
		return nil, userInputError("%v", err)
	}

	rec, err := s.storage.GetSlot(ctx, change.ID)
	if err != nil {
		return nil, err
	}

	rec.HostingStatus = change.Status
	rec.StartAt = change.StartAt
	rec.EndAt = change.EndAt
	if rec.Capacity.IsPresent() || change.Capacity != 0 {
		rec.Capacity = mo.Some(change.Capacity)
	}

	if err := s.storage.UpdateSlot(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("slot hosting status changed", "slot_id", rec.ID, "status", rec.HostingStatus)

	return map[string]any{
		fieldStatusChange: slotclient.StatusChangePayload{Slot: slotclient.EncodeSlot(rec.Persisted(), s.cal.Location())},
	}, nil
}

func decodeInput(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return userInputError("variable input is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return userInputError("invalid input: %v", err)
	}
	return nil
}
