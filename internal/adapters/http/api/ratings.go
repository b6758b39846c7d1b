package api

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/internal/domain/types"
)

// HeaderIdempotencyKey makes a rating write safe to retry.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxBodyBytes = 1 << 12

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// RatingDependencies defines the rating operations.
type RatingDependencies interface {
	Rating(ctx context.Context, memberID, performanceID string) (types.Rating, error)
	SetRating(ctx context.Context, w types.RatingWrite, t model.Tier) (types.Rating, error)
	ClearRating(ctx context.Context, w types.RatingWrite) (types.Rating, error)
	ToggleRating(ctx context.Context, w types.RatingWrite) (types.Rating, error)
}

// RatingHandler serves a member's rating of one performance.
type RatingHandler struct {
	deps RatingDependencies
}

// NewRatingHandler creates a new rating handler.
func NewRatingHandler(deps RatingDependencies) *RatingHandler {
	return &RatingHandler{deps: deps}
}

// ratingRequest is the body of PUT /performances/{id}/rating.
type ratingRequest struct {
	Tier string `json:"tier" validate:"required,oneof=curious interested must_go red yellow green"`
}

type ratingTarget struct {
	MemberID      string `validate:"required,max=128"`
	PerformanceID string `validate:"required,max=128"`
	Key           string `validate:"omitempty,max=256"`
}

func target(r *http.Request) (types.RatingWrite, error) {
	t := ratingTarget{
		MemberID:      MemberFrom(r.Context()),
		PerformanceID: chi.URLParam(r, "performanceID"),
		Key:           strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)),
	}
	if t.MemberID == "" {
		return types.RatingWrite{}, ErrUnauthorized
	}
	if err := getValidator().Struct(t); err != nil {
		return types.RatingWrite{}, err
	}
	return types.RatingWrite{MemberID: t.MemberID, PerformanceID: t.PerformanceID, IdempotencyKey: t.Key}, nil
}

// HandleGet handles GET /performances/{performanceID}/rating.
func (h *RatingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rating"
	t, err := target(r)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	out, err := h.deps.Rating(r.Context(), t.MemberID, t.PerformanceID)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePut handles PUT /performances/{performanceID}/rating.
func (h *RatingHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_rating"
	t, err := target(r)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	var req ratingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := getValidator().Struct(req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	tier, err := model.ParseTier(req.Tier)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	h.respond(w, op)(h.deps.SetRating(r.Context(), t, tier))
}

// HandleDelete handles DELETE /performances/{performanceID}/rating.
func (h *RatingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_rating"
	t, err := target(r)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	h.respond(w, op)(h.deps.ClearRating(r.Context(), t))
}

// HandleToggle handles POST /performances/{performanceID}/rating/toggle.
func (h *RatingHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_rating"
	t, err := target(r)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	h.respond(w, op)(h.deps.ToggleRating(r.Context(), t))
}

func (h *RatingHandler) respond(w http.ResponseWriter, op string) func(types.Rating, error) {
	return func(out types.Rating, err error) {
		if err != nil {
			writeError(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
