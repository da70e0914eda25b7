package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/audio-platform/internal/platform/analytics"
	"github.com/example/audio-platform/internal/platform/api"
	"github.com/example/audio-platform/internal/platform/auth"
	"github.com/example/audio-platform/internal/platform/httpserver"
	"github.com/example/audio-platform/services/listening/internal/store"
	"github.com/example/audio-platform/services/listening/internal/worker"
)

type recordPlayRequest struct {
	ContentID string  `json:"content_id"`
	Progress  float64 `json:"progress"`
	PlayedAt  string  `json:"played_at,omitempty"`
}

type recordPlayResponse struct {
	EntryID    string  `json:"entry_id"`
	ContentID  string  `json:"content_id"`
	Progress   float64 `json:"progress"`
	PlayedAt   string  `json:"played_at"`
	EntryCount int     `json:"entry_count"`
}

// RecordPlay appends or updates a play in the caller's ledger. When async
// writes are enabled the event is queued instead and the response is 202.
func RecordPlay(history store.HistoryStore, pub *EventPublisher, an *analytics.Publisher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHENTICATED", "Authentication required", rid)
			return
		}

		var req recordPlayRequest
		if !decodeJSON(w, r, rid, &req) {
			return
		}
		contentID, err := uuid.Parse(strings.TrimSpace(req.ContentID))
		if err != nil {
			api.BadRequest(w, "INVALID_CONTENT_ID", "content_id must be a UUID", rid, nil)
			return
		}
		if req.Progress < 0 {
			api.BadRequest(w, "INVALID_PROGRESS", "progress must not be negative", rid, nil)
			return
		}
		playedAt := time.Now()
		if req.PlayedAt != "" {
			t, err := time.Parse(time.RFC3339, req.PlayedAt)
			if err != nil {
				api.BadRequest(w, "INVALID_PLAYED_AT", "played_at must be RFC3339", rid, nil)
				return
			}
			playedAt = t
		}

		if pub.Enabled() {
			eventID, err := pub.PublishJSON(worker.SubjectPlay, map[string]any{
				"user_id":    uid,
				"content_id": contentID.String(),
				"progress":   req.Progress,
				"played_at":  playedAt.UTC().Format(time.RFC3339),
			})
			if err == nil {
				w.Header().Set("X-Event-ID", eventID)
				api.WriteJSON(w, http.StatusAccepted, map[string]any{"queued": true, "event_id": eventID})
				return
			}
			log.Warn("async play publish failed, falling back to sync write", zap.Error(err))
		}

		snap, created, err := history.RecordPlay(r.Context(), uid, contentID, req.Progress, playedAt)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		an.Publish(analytics.SubjectPlayRecorded, "play_recorded", uid, map[string]any{
			"content_id": contentID.String(),
			"created":    created,
		})

		code := http.StatusOK
		if created {
			code = http.StatusCreated
		}
		api.WriteJSON(w, code, recordPlayResponse{
			EntryID:    snap.Entry.ID.String(),
			ContentID:  snap.Entry.ContentID.String(),
			Progress:   snap.Entry.Progress,
			PlayedAt:   snap.Entry.PlayedAt.Format(time.RFC3339),
			EntryCount: snap.EntryCount,
		})
	}
}

// DeleteHistory removes either the whole ledger (all=yes) or the entries
// named by the ids query param. With neither it is a harmless no-op.
func DeleteHistory(history store.HistoryStore, an *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHENTICATED", "Authentication required", rid)
			return
		}

		q := r.URL.Query()
		if strings.EqualFold(q.Get("all"), "yes") {
			if err := history.DeleteAll(r.Context(), uid); err != nil {
				writeStatusError(w, rid, err)
				return
			}
			an.Publish(analytics.SubjectHistoryDeleted, "history_deleted", uid, map[string]any{"all": true})
			api.WriteJSON(w, http.StatusOK, map[string]any{"deleted": "all"})
			return
		}

		raw := strings.TrimSpace(q.Get("ids"))
		if raw == "" {
			api.WriteJSON(w, http.StatusOK, map[string]any{"message": "empty request"})
			return
		}
		var ids []uuid.UUID
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				api.BadRequest(w, "INVALID_ENTRY_ID", "ids must be UUIDs", rid, nil)
				return
			}
			ids = append(ids, id)
		}
		if err := history.DeleteEntries(r.Context(), uid, ids); err != nil {
			writeStatusError(w, rid, err)
			return
		}
		an.Publish(analytics.SubjectHistoryDeleted, "history_deleted", uid, map[string]any{"count": len(ids)})
		api.WriteJSON(w, http.StatusOK, map[string]any{"deleted": len(ids)})
	}
}

// ListHistory returns the caller's plays grouped by calendar day, newest
// day first.
func ListHistory(history store.HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHENTICATED", "Authentication required", rid)
			return
		}

		page, limit := pagination(r)
		groups, err := history.ListByDay(r.Context(), uid, page, limit)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		if groups == nil {
			groups = []store.DayGroup{}
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"history": groups})
	}
}

// ListRecent returns a flat newest-first page of plays with content and
// uploader metadata attached.
func ListRecent(history store.HistoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHENTICATED", "Authentication required", rid)
			return
		}

		page, limit := pagination(r)
		plays, err := history.ListRecent(r.Context(), uid, page, limit)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		if plays == nil {
			plays = []store.RecentPlay{}
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"plays": plays})
	}
}
