// Package httpapi exposes the song resolution service over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"songlens/internal/models"
	"songlens/internal/songs"
)

// SongService captures the operations needed by the HTTP handlers.
type SongService interface {
	SearchSongs(ctx context.Context, title, artist string) songs.SearchResponse
	GetSongDetail(ctx context.Context, id string) *songs.SongDetail
	GetArtistOtherWorks(ctx context.Context, artistID, excludeSongID string, offset int) songs.OtherWorksPage
	GetArtistNamesForSongs(ctx context.Context, songIDs []string) []songs.ArtistName
	FindVideoPreview(ctx context.Context, artist, title string) models.VideoSearchResult
	RefreshSong(ctx context.Context, id string) error
}

// maxArtistNameBatch caps how many song ids one artist-name request may carry.
const maxArtistNameBatch = 50

// Server wires HTTP handlers to the song service.
type Server struct {
	songs SongService
}

// New configures a Server with the given service implementation.
func New(songs SongService) *Server {
	return &Server{songs: songs}
}

// Routes exposes the HTTP handlers.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/v1/songs", s.handleSearchSongs)
	mux.HandleFunc("GET /api/v1/songs/artists", s.handleArtistNames)
	mux.HandleFunc("GET /api/v1/songs/{id}", s.handleSongDetail)
	mux.HandleFunc("DELETE /api/v1/songs/{id}/cache", s.handleRefreshSong)
	mux.HandleFunc("GET /api/v1/artists/{id}/works", s.handleArtistWorks)
	mux.HandleFunc("GET /api/v1/videos/search", s.handleVideoSearch)

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSearchSongs(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	artist := strings.TrimSpace(r.URL.Query().Get("artist"))
	if title == "" && artist == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "title or artist parameter is required"})
		return
	}

	writeJSON(w, http.StatusOK, s.songs.SearchSongs(r.Context(), title, artist))
}

func (s *Server) handleSongDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	detail := s.songs.GetSongDetail(r.Context(), id)
	if detail == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "song not found"})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRefreshSong(w http.ResponseWriter, r *http.Request) {
	if err := s.songs.RefreshSong(r.Context(), r.PathValue("id")); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "refresh failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleArtistNames(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "ids parameter is required"})
		return
	}
	if len(ids) > maxArtistNameBatch {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "too many ids"})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Artists []songs.ArtistName `json:"artists"`
	}{Artists: s.songs.GetArtistNamesForSongs(r.Context(), ids)})
}

func (s *Server) handleArtistWorks(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid offset parameter"})
			return
		}
		offset = parsed
	}

	page := s.songs.GetArtistOtherWorks(r.Context(), r.PathValue("id"), r.URL.Query().Get("exclude"), offset)
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleVideoSearch(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "title parameter is required"})
		return
	}
	artist := strings.TrimSpace(r.URL.Query().Get("artist"))

	writeJSON(w, http.StatusOK, s.songs.FindVideoPreview(r.Context(), artist, title))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
