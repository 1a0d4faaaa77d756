package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/libslots/datetime"
	"github.com/cyp0633/libslots/editor"
	"github.com/cyp0633/libslots/internal/httpclient"
	"github.com/cyp0633/libslots/recurrence"
	"github.com/cyp0633/libslots/slot"
	"github.com/cyp0633/libslots/slotclient"
	"github.com/cyp0633/libslots/storage"
	"github.com/cyp0633/libslots/storage/memory"
)

func doGraphQL(t *testing.T, srv http.Handler, operation, query string, input any) httpclient.Response {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/graphql", httpclient.Request{
		Query:         query,
		OperationName: operation,
		Variables:     map[string]any{"input": input},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp httpclient.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func errorCode(t *testing.T, resp httpclient.Response) string {
	t.Helper()
	require.Len(t, resp.Errors, 1)
	code, _ := resp.Errors[0].Extensions["code"].(string)
	return code
}

func TestGraphQL_BulkUpdate(t *testing.T) {
	srv, store := setupTestServer(t)
	ctx := context.Background()
	existing := seedSlot(t, store, "opp-1", at(2025, 1, 1, 10, 0), at(2025, 1, 1, 12, 0), "")

	capacity := 5
	resp := doGraphQL(t, srv, slotclient.OperationBulkUpdate, slotclient.BulkUpdateDocument, slotclient.BulkUpdateInput{
		OpportunityID: "opp-1",
		Create: []slotclient.CreateInput{
			{StartAt: "2025-01-02T10:00:00+09:00", EndAt: "2025-01-02T12:00:00+09:00", Capacity: &capacity},
			{StartAt: "2025-01-03T10:00:00+09:00", EndAt: "2025-01-03T09:00:00+09:00"},
		},
		Update: []slotclient.UpdateInput{
			{ID: existing.ID, StartAt: "2025-01-01T13:00:00+09:00", EndAt: "2025-01-01T15:00:00+09:00"},
		},
	})
	require.Empty(t, resp.Errors)

	var data struct {
		Payload slotclient.BulkUpdatePayload `json:"opportunitySlotsBulkUpdate"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))

	require.Len(t, data.Payload.Created, 2)
	require.NotNil(t, data.Payload.Created[0].Slot)
	assert.Nil(t, data.Payload.Created[0].Error)
	assert.NotEmpty(t, data.Payload.Created[0].Slot.ID)
	assert.Equal(t, "2025-01-02T10:00:00+09:00", data.Payload.Created[0].Slot.StartAt)
	assert.Equal(t, 5, *data.Payload.Created[0].Slot.Capacity)
	assert.Equal(t, string(slot.StatusScheduled), *data.Payload.Created[0].Slot.HostingStatus)

	assert.Nil(t, data.Payload.Created[1].Slot)
	require.NotNil(t, data.Payload.Created[1].Error)
	assert.Contains(t, *data.Payload.Created[1].Error, "end must be after start")

	require.Len(t, data.Payload.Updated, 1)
	assert.Equal(t, existing.ID, data.Payload.Updated[0].ID)
	assert.Equal(t, "2025-01-01T13:00:00+09:00", data.Payload.Updated[0].StartAt)

	stored, err := store.ListSlots(ctx, "opp-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].StartAt.Equal(at(2025, 1, 1, 13, 0)))
	assert.Equal(t, mo.Some(10), stored[0].Capacity)
}

func TestGraphQL_BulkUpdate_RejectsBeforeWriting(t *testing.T) {
	srv, store := setupTestServer(t)
	ctx := context.Background()
	mine := seedSlot(t, store, "opp-1", at(2025, 1, 1, 10, 0), at(2025, 1, 1, 12, 0), "")
	theirs := seedSlot(t, store, "opp-2", at(2025, 1, 1, 10, 0), at(2025, 1, 1, 12, 0), "")

	tests := []struct {
		name     string
		input    slotclient.BulkUpdateInput
		wantCode string
	}{
		{
			name: "unknown slot",
			input: slotclient.BulkUpdateInput{
				OpportunityID: "opp-1",
				Update:        []slotclient.UpdateInput{{ID: "missing", StartAt: "2025-01-01T10:00:00+09:00", EndAt: "2025-01-01T11:00:00+09:00"}},
			},
			wantCode: codeNotFound,
		},
		{
			name: "slot of another opportunity",
			input: slotclient.BulkUpdateInput{
				OpportunityID: "opp-1",
				Update:        []slotclient.UpdateInput{{ID: theirs.ID, StartAt: "2025-01-01T10:00:00+09:00", EndAt: "2025-01-01T11:00:00+09:00"}},
			},
			wantCode: codeBadUserInput,
		},
		{
			name: "inverted update",
			input: slotclient.BulkUpdateInput{
				OpportunityID: "opp-1",
				Update: []slotclient.UpdateInput{
					{ID: mine.ID, StartAt: "2025-01-01T09:00:00+09:00", EndAt: "2025-01-01T10:00:00+09:00"},
					{ID: mine.ID, StartAt: "2025-01-01T12:00:00+09:00", EndAt: "2025-01-01T10:00:00+09:00"},
				},
			},
			wantCode: codeBadUserInput,
		},
		{
			name: "malformed timestamp",
			input: slotclient.BulkUpdateInput{
				OpportunityID: "opp-1",
				Create:        []slotclient.CreateInput{{StartAt: "2025-01-01 10:00", EndAt: "2025-01-01T11:00:00+09:00"}},
			},
			wantCode: codeBadUserInput,
		},
		{
			name:     "missing opportunity",
			input:    slotclient.BulkUpdateInput{},
			wantCode: codeBadUserInput,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.input.Create = append(tc.input.Create, slotclient.CreateInput{
				StartAt: "2025-01-05T10:00:00+09:00",
				EndAt:   "2025-01-05T11:00:00+09:00",
			})
			resp := doGraphQL(t, srv, slotclient.OperationBulkUpdate, slotclient.BulkUpdateDocument, tc.input)

			assert.Equal(t, tc.wantCode, errorCode(t, resp))
			assert.Empty(t, resp.Data)

			stored, err := store.ListSlots(ctx, "opp-1")
			require.NoError(t, err)
			require.Len(t, stored, 1)
			assert.True(t, stored[0].StartAt.Equal(at(2025, 1, 1, 10, 0)))
		})
	}
}

// failingUpdates stores nothing on a bulk update.
type failingUpdates struct {
	*memory.Store
}

func (failingUpdates) UpdateSlots(context.Context, []*storage.Slot) error {
	return errors.New("disk full")
}

func TestGraphQL_BulkUpdate_FailedWriteStoresNothing(t *testing.T) {
	store := failingUpdates{Store: memory.New()}
	engine := recurrence.NewEngine(datetime.NewLocal(jst))
	t.Cleanup(engine.Close)
	srv, err := New(store, engine)
	require.NoError(t, err)

	ctx := context.Background()
	first := seedSlot(t, store, "opp-1", at(2025, 1, 1, 10, 0), at(2025, 1, 1, 12, 0), "")
	second := seedSlot(t, store, "opp-1", at(2025, 1, 2, 10, 0), at(2025, 1, 2, 12, 0), "")

	resp := doGraphQL(t, srv, slotclient.OperationBulkUpdate, slotclient.BulkUpdateDocument, slotclient.BulkUpdateInput{
		OpportunityID: "opp-1",
		Create:        []slotclient.CreateInput{{StartAt: "2025-01-05T10:00:00+09:00", EndAt: "2025-01-05T11:00:00+09:00"}},
		Update: []slotclient.UpdateInput{
			{ID: first.ID, StartAt: "2025-01-01T13:00:00+09:00", EndAt: "2025-01-01T15:00:00+09:00"},
			{ID: second.ID, StartAt: "2025-01-02T13:00:00+09:00", EndAt: "2025-01-02T15:00:00+09:00"},
		},
	})
	assert.Equal(t, codeInternalError, errorCode(t, resp))
	assert.Empty(t, resp.Data)

	stored, err := store.ListSlots(ctx, "opp-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].StartAt.Equal(at(2025, 1, 1, 10, 0)))
	assert.True(t, stored[1].StartAt.Equal(at(2025, 1, 2, 10, 0)))
}

func TestGraphQL_StatusChange(t *testing.T) {
	srv, store := setupTestServer(t)
	rec := seedSlot(t, store, "opp-1", at(2025, 1, 1, 10, 0), at(2025, 1, 1, 12, 0), "")

	resp := doGraphQL(t, srv, slotclient.OperationStatusChange, slotclient.StatusChangeDocument, slotclient.StatusChangeInput{
		ID:       rec.ID,
		Status:   string(slot.StatusCancelled),
		StartAt:  "2025-01-01T10:00:00+09:00",
		EndAt:    "2025-01-01T12:00:00+09:00",
		Capacity: 10,
	})
	require.Empty(t, resp.Errors)

	var data struct {
		Payload slotclient.StatusChangePayload `json:"slotHostingStatusUpdate"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, rec.ID, data.Payload.Slot.ID)
	assert.Equal(t, string(slot.StatusCancelled), *data.Payload.Slot.HostingStatus)

	stored, err := store.GetSlot(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, slot.StatusCancelled, stored.HostingStatus)
	assert.Equal(t, mo.Some(10), stored.Capacity)
}

func TestGraphQL_StatusChange_KeepsMissingCapacity(t *testing.T) {
	srv, store := setupTestServer(t)
	rec := &storage.Slot{OpportunityID: "opp-1", StartAt: at(2025, 1, 1, 10, 0), EndAt: at(2025, 1, 1, 12, 0)}
	require.NoError(t, store.CreateSlot(context.Background(), rec))

	resp := doGraphQL(t, srv, "", slotclient.StatusChangeDocument, slotclient.StatusChangeInput{
		ID:      rec.ID,
		Status:  string(slot.StatusCompleted),
		StartAt: "2025-01-01T10:00:00+09:00",
		EndAt:   "2025-01-01T12:00:00+09:00",
	})
	require.Empty(t, resp.Errors)

	stored, err := store.GetSlot(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, slot.StatusCompleted, stored.HostingStatus)
	assert.True(t, stored.Capacity.IsAbsent())
}

func TestGraphQL_Errors(t *testing.T) {
	srv, _ := setupTestServer(t)

	tests := []struct {
		name      string
		operation string
		query     string
		input     any
		wantCode  string
	}{
		{"unknown operation", "DeleteEverything", "mutation DeleteEverything { nuke }", map[string]any{}, codeUnknownOp},
		{"missing input", slotclient.OperationStatusChange, slotclient.StatusChangeDocument, nil, codeBadUserInput},
		{"unknown slot", slotclient.OperationStatusChange, slotclient.StatusChangeDocument, slotclient.StatusChangeInput{
			ID: "missing", Status: "CANCELLED", StartAt: "2025-01-01T10:00:00+09:00", EndAt: "2025-01-01T11:00:00+09:00",
		}, codeNotFound},
		{"bad status", slotclient.OperationStatusChange, slotclient.StatusChangeDocument, slotclient.StatusChangeInput{
			ID: "x", Status: "POSTPONED", StartAt: "2025-01-01T10:00:00+09:00", EndAt: "2025-01-01T11:00:00+09:00",
		}, codeBadUserInput},
		{"wrong input shape", slotclient.OperationBulkUpdate, slotclient.BulkUpdateDocument, []int{1}, codeBadUserInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := doGraphQL(t, srv, tc.operation, tc.query, tc.input)
			assert.Equal(t, tc.wantCode, errorCode(t, resp))
		})
	}
}

func TestGraphQL_MalformedBody(t *testing.T) {
	srv, _ := setupTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/graphql", "not an object")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOperationFromQuery(t *testing.T) {
	assert.Equal(t, slotclient.OperationBulkUpdate, operationFromQuery(slotclient.BulkUpdateDocument))
	assert.Equal(t, slotclient.OperationStatusChange, operationFromQuery(slotclient.StatusChangeDocument))
	assert.Empty(t, operationFromQuery("{ __typename }"))
}

// TestEditorRoundTrip drives an editing session through the real client
// against the server.
func TestEditorRoundTrip(t *testing.T) {
	srv, store := setupTestServer(t)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	ctx := context.Background()

	client, err := slotclient.New(ts.URL+"/graphql", slotclient.WithLocation(jst))
	require.NoError(t, err)

	engine := recurrence.NewEngine(srv.cal)
	session := editor.NewSession("opp-1", engine, client, nil)

	preview := session.Preview(recurrence.PreviewRequest{
		BaseStartAt:  at(2025, 1, 1, 22, 0),
		BaseEndAt:    at(2025, 1, 2, 1, 0),
		Type:         recurrence.TypeWeekly,
		SelectedDays: []int{3},
		HasEndDate:   true,
		EndDateInput: "2025-01-22",
	})
	require.True(t, preview.CanConfirm())

	added, err := session.Confirm(mo.Some(6))
	require.NoError(t, err)
	assert.Equal(t, 4, added)

	result, err := session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Created)
	assert.Empty(t, result.Failed)

	stored, err := store.ListSlots(ctx, "opp-1")
	require.NoError(t, err)
	require.Len(t, stored, 4)
	for i, rec := range stored {
		assert.True(t, rec.StartAt.Equal(at(2025, 1, 1+7*i, 22, 0)))
		assert.Equal(t, 3*60*60*1000, int(rec.EndAt.Sub(rec.StartAt).Milliseconds()))
		assert.Equal(t, mo.Some(6), rec.Capacity)
	}

	for i, s := range session.Slots() {
		p, ok := s.(slot.PersistedSlot)
		require.True(t, ok, "slot %d should be persisted", i)
		assert.Equal(t, stored[i].ID, p.ID)
	}

	// Moving a slot goes out as an update.
	require.NoError(t, session.Update(1, at(2025, 1, 8, 20, 0), at(2025, 1, 8, 23, 0)))
	result, err = session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 4, result.Updated)

	moved, err := store.GetSlot(ctx, stored[1].ID)
	require.NoError(t, err)
	assert.True(t, moved.StartAt.Equal(at(2025, 1, 8, 20, 0)))

	require.NoError(t, session.CancelSlot(ctx, 0))
	cancelled, err := store.GetSlot(ctx, stored[0].ID)
	require.NoError(t, err)
	assert.Equal(t, slot.StatusCancelled, cancelled.HostingStatus)
	assert.True(t, session.Slots()[0].(slot.PersistedSlot).Cancelled())

	assert.ErrorIs(t, session.CancelSlot(ctx, 9), editor.ErrIndexOutOfRange)
}
