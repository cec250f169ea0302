package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"SecFeed/internal/domain"
)

const (
	createdAtLayout = "2006-01-02 15:04:05"
	maxBodyBytes    = 1 << 20
)

var errBodyRequired = &domain.ValidationError{Message: "Request body is required"}

type errorResponse struct {
	Error string `json:"error"`
}

type userIDResponse struct {
	UserID int64 `json:"userId"`
}

type interestResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type userResponse struct {
	ID        int64              `json:"id"`
	Job       string             `json:"job"`
	CreatedAt string             `json:"created_at"`
	Interests []interestResponse `json:"interests"`
}

type articleResponse struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Summary          string  `json:"summary"`
	Link             string  `json:"link"`
	Category         *string `json:"category"`
	Subcategory      *string `json:"subcategory"`
	Date             *string `json:"date"`
	ImageURL         *string `json:"imageUrl"`
	RelevanceScore   float64 `json:"relevance_score"`
	JobScore         float64 `json:"job_score"`
	AvgInterestScore float64 `json:"avg_interest_score"`
}

func (s *server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	job, err := decodeJob(fields, true)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ids := []int64{}
	if raw, ok := fields["interest_ids"]; ok {
		if ids, err = decodeInterestIDs(raw); err != nil {
			s.writeError(w, err)
			return
		}
	}

	id, err := s.users.Create(r.Context(), job, ids)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userIDResponse{UserID: id})
}

func (s *server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "User not found"})
		return
	}

	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := userResponse{
		ID:        user.ID,
		Job:       string(user.Job),
		CreatedAt: formatCreatedAt(user.CreatedAt),
		Interests: make([]interestResponse, 0, len(user.Interests)),
	}
	for _, interest := range user.Interests {
		resp.Interests = append(resp.Interests, interestResponse{ID: interest.ID, Name: interest.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePatchUser reports an unknown user before any field validation.
func (s *server) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "User not found"})
		return
	}

	fields, err := decodeObject(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	exists, err := s.users.Exists(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !exists {
		s.writeError(w, domain.ErrNotFound)
		return
	}

	var jobPtr *string
	if raw, ok := fields["job"]; ok && !isNull(raw) {
		job, err := decodeJob(fields, false)
		if err != nil {
			s.writeError(w, err)
			return
		}
		jobPtr = &job
	}

	var (
		ids          []int64
		setInterests bool
	)
	if raw, ok := fields["interest_ids"]; ok && !isNull(raw) {
		if ids, err = decodeInterestIDs(raw); err != nil {
			s.writeError(w, err)
			return
		}
		setInterests = true
	}

	if err := s.users.Update(r.Context(), id, jobPtr, ids, setInterests); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userIDResponse{UserID: id})
}

func (s *server) handleArticles(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("userId")), 10, 64)
	if err != nil || userID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId query parameter is required"})
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	ranked, err := s.ranker.RankForUser(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]articleResponse, 0, len(ranked))
	for _, item := range ranked {
		out = append(out, articleResponse{
			ID:               item.Article.ID,
			Title:            item.Article.Title,
			Summary:          item.Article.Summary,
			Link:             item.Article.Link,
			Category:         optional(item.Article.Category),
			Subcategory:      optional(item.Article.Subcategory),
			Date:             optional(item.Article.PublishedOn),
			ImageURL:         optional(item.Article.ImageURL),
			RelevanceScore:   item.Relevance,
			JobScore:         item.JobScore,
			AvgInterestScore: item.AvgInterestScore,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleInterests(w http.ResponseWriter, r *http.Request) {
	interests, err := s.users.Interests(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]interestResponse, 0, len(interests))
	for _, interest := range interests {
		out = append(out, interestResponse{ID: interest.ID, Name: interest.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "User not found"})
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeObject reads a non-empty JSON object keyed by field name.
func decodeObject(r *http.Request) (map[string]json.RawMessage, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil, errBodyRequired
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) == 0 {
		return nil, errBodyRequired
	}
	return fields, nil
}

func decodeJob(fields map[string]json.RawMessage, required bool) (string, error) {
	raw, ok := fields["job"]
	if !ok || isNull(raw) {
		if required {
			return "", &domain.ValidationError{Field: "job", Message: "job is required"}
		}
		return "", nil
	}

	var job string
	if err := json.Unmarshal(raw, &job); err != nil {
		return "", domain.InvalidJobError()
	}
	return job, nil
}

func decodeInterestIDs(raw json.RawMessage) ([]int64, error) {
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil || isNull(raw) {
		return nil, &domain.ValidationError{Field: "interest_ids", Message: "interest_ids must be a list"}
	}
	return ids, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func formatCreatedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(createdAtLayout)
}
