package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/audio-platform/internal/platform/auth"
	"github.com/example/audio-platform/services/listening/internal/store"
)

func newHistoryFixture() (*store.MemoryHistoryStore, *store.MemoryCatalogStore) {
	catalog := store.NewMemoryCatalogStore()
	return store.NewMemoryHistoryStore(catalog), catalog
}

func seedContent(catalog *store.MemoryCatalogStore, category string) uuid.UUID {
	id := uuid.New()
	owner := uuid.New()
	catalog.AddUser(owner, "uploader")
	catalog.AddContent(store.Content{
		ID:       id,
		Title:    "content-" + id.String()[:8],
		Category: category,
		OwnerID:  owner,
	})
	return id
}

func authed(r *http.Request, uid string) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), uid))
}

func TestRecordPlay_Unauthenticated(t *testing.T) {
	history, _ := newHistoryFixture()
	h := RecordPlay(history, nil, nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/v1/history", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRecordPlay_InvalidJSON(t *testing.T) {
	history, _ := newHistoryFixture()
	h := RecordPlay(history, nil, nil, zap.NewNop())

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/history", strings.NewReader(`{not json`)), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRecordPlay_InvalidContentID(t *testing.T) {
	history, _ := newHistoryFixture()
	h := RecordPlay(history, nil, nil, zap.NewNop())

	req := authed(httptest.NewRequest(http.MethodPost, "/v1/history", strings.NewReader(`{"content_id":"nope"}`)), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRecordPlay_NegativeProgress(t *testing.T) {
	history, catalog := newHistoryFixture()
	c := seedContent(catalog, "tech")
	h := RecordPlay(history, nil, nil, zap.NewNop())

	body := fmt.Sprintf(`{"content_id":%q,"progress":-5}`, c)
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/history", strings.NewReader(body)), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRecordPlay_UnknownContent(t *testing.T) {
	history, _ := newHistoryFixture()
	h := RecordPlay(history, nil, nil, zap.NewNop())

	body := fmt.Sprintf(`{"content_id":%q,"progress":10}`, uuid.New())
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/history", strings.NewReader(body)), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRecordPlay_CreatedThenUpdated(t *testing.T) {
	history, catalog := newHistoryFixture()
	c := seedContent(catalog, "tech")
	h := RecordPlay(history, nil, nil, zap.NewNop())

	playedAt := time.Now().Format(time.RFC3339)
	body := fmt.Sprintf(`{"content_id":%q,"progress":10,"played_at":%q}`, c, playedAt)
	req := authed(httptest.NewRequest(http.MethodPost, "/v1/history", strings.NewReader(body)), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first play, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp recordPlayResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.EntryCount != 1 || resp.Progress != 10 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	body = fmt.Sprintf(`{"content_id":%q,"progress":50}`, c)
	req = authed(httptest.NewRequest(http.MethodPost, "/v1/history", strings.NewReader(body)), "u1")
	rr = httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on existing ledger, got %d", rr.Code)
	}
}

func TestDeleteHistory_All(t *testing.T) {
	history, catalog := newHistoryFixture()
	c := seedContent(catalog, "tech")
	if _, _, err := history.RecordPlay(context.Background(), "u1", c, 1, time.Now()); err != nil {
		t.Fatalf("seed play: %v", err)
	}
	h := DeleteHistory(history, nil)

	req := authed(httptest.NewRequest(http.MethodDelete, "/v1/history?all=yes", nil), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	plays, _ := history.ListRecent(req.Context(), "u1", 1, 20)
	if len(plays) != 0 {
		t.Fatal("expected emptied history")
	}
}

func TestDeleteHistory_ByIDs(t *testing.T) {
	history, catalog := newHistoryFixture()
	c1 := seedContent(catalog, "tech")
	c2 := seedContent(catalog, "music")
	ctx := context.Background()
	snap1, _, _ := history.RecordPlay(ctx, "u1", c1, 1, time.Now().Add(-time.Hour))
	if _, _, err := history.RecordPlay(ctx, "u1", c2, 1, time.Now()); err != nil {
		t.Fatalf("seed play: %v", err)
	}
	h := DeleteHistory(history, nil)

	req := authed(httptest.NewRequest(http.MethodDelete, "/v1/history?ids="+snap1.Entry.ID.String(), nil), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	plays, _ := history.ListRecent(req.Context(), "u1", 1, 20)
	if len(plays) != 1 || plays[0].ContentID != c2 {
		t.Fatal("expected only the second play to remain")
	}
}

func TestDeleteHistory_EmptyRequest(t *testing.T) {
	history, _ := newHistoryFixture()
	h := DeleteHistory(history, nil)

	req := authed(httptest.NewRequest(http.MethodDelete, "/v1/history", nil), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "empty request") {
		t.Fatalf("expected empty request message, got %s", rr.Body.String())
	}
}

func TestDeleteHistory_BadID(t *testing.T) {
	history, _ := newHistoryFixture()
	h := DeleteHistory(history, nil)

	req := authed(httptest.NewRequest(http.MethodDelete, "/v1/history?ids=not-a-uuid", nil), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestListHistory_GroupedResponse(t *testing.T) {
	history, catalog := newHistoryFixture()
	c := seedContent(catalog, "tech")
	ctx := context.Background()
	if _, _, err := history.RecordPlay(ctx, "u1", c, 30, time.Now()); err != nil {
		t.Fatalf("seed play: %v", err)
	}
	h := ListHistory(history)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/history", nil), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp struct {
		History []store.DayGroup `json:"history"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.History) != 1 || len(resp.History[0].Plays) != 1 {
		t.Fatalf("unexpected response: %s", rr.Body.String())
	}
	if resp.History[0].Date != store.DayOf(time.Now()) {
		t.Fatalf("unexpected day: %s", resp.History[0].Date)
	}
}

func TestListRecent_EmptyIsArray(t *testing.T) {
	history, _ := newHistoryFixture()
	h := ListRecent(history)

	req := authed(httptest.NewRequest(http.MethodGet, "/v1/history/recent", nil), "u1")
	rr := httptest.NewRecorder()
	h(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"plays":[]`) {
		t.Fatalf("expected empty array, got %s", rr.Body.String())
	}
}

func TestPagination_Clamps(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/history?page=-3&limit=9999", nil)
	page, limit := pagination(req)
	if page != 1 || limit != maxPageLimit {
		t.Fatalf("expected clamped values, got page=%d limit=%d", page, limit)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	page, limit = pagination(req)
	if page != 1 || limit != defaultPageLimit {
		t.Fatalf("expected defaults, got page=%d limit=%d", page, limit)
	}
}
