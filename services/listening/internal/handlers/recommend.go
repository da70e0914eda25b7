package handlers

import (
	"net/http"

	"github.com/example/audio-platform/internal/platform/api"
	"github.com/example/audio-platform/internal/platform/auth"
	"github.com/example/audio-platform/internal/platform/httpserver"
	"github.com/example/audio-platform/services/listening/internal/materialize"
	"github.com/example/audio-platform/services/listening/internal/recommend"
	"github.com/example/audio-platform/services/listening/internal/store"
)

// Categories returns the caller's favorite categories from their recent
// listening window.
func Categories(rec *recommend.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHENTICATED", "Authentication required", rid)
			return
		}

		cats, err := rec.FavoriteCategories(r.Context(), uid)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		if cats == nil {
			cats = []string{}
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"categories": cats})
	}
}

// RecommendedContent serves the engagement ranking, personalized when the
// caller presents a valid token and global otherwise. Responses are cached
// per user.
func RecommendedContent(rec *recommend.Recommender, cache Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, _ := auth.UserIDFromContext(r.Context())

		key := "recommended:" + uid
		if cache != nil {
			if v, ok := cache.Get(key); ok {
				api.WriteJSON(w, http.StatusOK, v)
				return
			}
		}

		out, err := rec.RecommendedContent(r.Context(), uid)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		if out == nil {
			out = []store.Content{}
		}
		resp := map[string]any{"content": out}
		if cache != nil {
			cache.Set(key, resp)
		}
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// AutoPlaylists returns the playlist shelf for the caller: sampled auto
// playlists matching their taste with the personal mix appended.
func AutoPlaylists(mat *materialize.Materializer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHENTICATED", "Authentication required", rid)
			return
		}

		playlists, err := mat.RecommendedPlaylists(r.Context(), uid)
		if err != nil {
			writeStatusError(w, rid, err)
			return
		}
		if playlists == nil {
			playlists = []materialize.PlaylistEntry{}
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
	}
}
