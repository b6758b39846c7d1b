package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/stagely/internal/domain/types"
)

// PlanDependencies defines the read operations behind plan routes.
type PlanDependencies interface {
	Timeline(ctx context.Context, festivalID string) (types.Timeline, error)
	HeatMap(ctx context.Context, groupID, dayID string) (types.HeatMap, error)
	Plan(ctx context.Context, groupID, dayID, viewer string) (types.Plan, error)
}

// PlanHandler serves timelines, heat maps and plans.
type PlanHandler struct {
	deps PlanDependencies
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(deps PlanDependencies) *PlanHandler {
	return &PlanHandler{deps: deps}
}

// HandleTimeline handles GET /festivals/{festivalID}/timeline.
func (h *PlanHandler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	const op = "api.timeline"
	tl, err := h.deps.Timeline(r.Context(), chi.URLParam(r, "festivalID"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

// HandleHeatMap handles GET /groups/{groupID}/days/{dayID}/heatmap.
func (h *PlanHandler) HandleHeatMap(w http.ResponseWriter, r *http.Request) {
	const op = "api.heatmap"
	hm, err := h.deps.HeatMap(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "dayID"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, hm)
}

// HandlePlan handles GET /groups/{groupID}/days/{dayID}/plan. Anonymous
// callers get the plan without recommendations.
func (h *PlanHandler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	const op = "api.plan"
	p, err := h.deps.Plan(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "dayID"), MemberFrom(r.Context()))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
