package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursebridge-backend/internal/http/response"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/catalog"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/coursecode"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/eligibility"
	"github.com/yungbote/coursebridge-backend/internal/modules/advising/hybrid"
	apperr "github.com/yungbote/coursebridge-backend/internal/pkg/errors"
	"github.com/yungbote/coursebridge-backend/internal/platform/logger"
	"github.com/yungbote/coursebridge-backend/internal/types"
)

type ContextResolver interface {
	ResolveContext(ctx context.Context, question string, completions []types.CompletionRecord) (advising.Bundle, error)
}

type EligibilityChecker interface {
	Resolve(ctx context.Context, targetID string, completions []types.CompletionRecord) (eligibility.Verdict, error)
}

type AdvisingHandler struct {
	log      *logger.Logger
	engine   ContextResolver
	resolver EligibilityChecker
	store    catalog.Store
}

func NewAdvisingHandler(log *logger.Logger, engine ContextResolver, resolver EligibilityChecker, store catalog.Store) *AdvisingHandler {
	return &AdvisingHandler{
		log:      log.With("handler", "AdvisingHandler"),
		engine:   engine,
		resolver: resolver,
		store:    store,
	}
}

type completionBody struct {
	CourseID string `json:"course_id" binding:"required"`
	Status   string `json:"status" binding:"required,oneof=completed in_progress planned"`
	Term     string `json:"term" binding:"omitempty,oneof=fall winter summer Fall Winter Summer"`
	Year     int    `json:"year" binding:"omitempty,gte=1900,lte=2200"`
}

type contextRequest struct {
	Question    string           `json:"question" binding:"required,max=2000"`
	Completions []completionBody `json:"completions" binding:"omitempty,max=200,dive"`
}

type eligibilityRequest struct {
	CourseID    string           `json:"course_id" binding:"required"`
	Completions []completionBody `json:"completions" binding:"omitempty,max=200,dive"`
}

// POST /v1/context
func (h *AdvisingHandler) ResolveContext(c *gin.Context) {
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	completions, err := toCompletions(req.Completions)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	bundle, err := h.engine.ResolveContext(c.Request.Context(), req.Question, completions)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"bundle": bundle})
}

// POST /v1/eligibility
func (h *AdvisingHandler) CheckEligibility(c *gin.Context) {
	var req eligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, ok := coursecode.Canonical(req.CourseID)
	if !ok {
		response.RespondDomainError(c, fmt.Errorf("%w: bad course id %q", apperr.ErrInvalidArgument, req.CourseID))
		return
	}
	completions, err := toCompletions(req.Completions)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	verdict, err := h.resolver.Resolve(c.Request.Context(), id, completions)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"verdict": verdict})
}

type courseView struct {
	Course       *types.Course `json:"course"`
	OfferedTerms []types.Term  `json:"offered_terms"`
	Requirements []hybrid.Link `json:"requirements"`
	Dependents   []hybrid.Link `json:"dependents"`
}

// GET /v1/courses/:id
func (h *AdvisingHandler) GetCourse(c *gin.Context) {
	id, ok := coursecode.Canonical(c.Param("id"))
	if !ok {
		response.RespondDomainError(c, fmt.Errorf("%w: bad course id %q", apperr.ErrInvalidArgument, c.Param("id")))
		return
	}
	ctx := c.Request.Context()
	course, found, err := h.store.GetCourse(ctx, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if !found {
		response.RespondDomainError(c, fmt.Errorf("course %s: %w", id, apperr.ErrNotFound))
		return
	}
	incoming, err := h.store.GetIncomingEdges(ctx, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	outgoing, err := h.store.GetOutgoingEdges(ctx, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	view := courseView{
		Course:       course,
		OfferedTerms: course.OfferedTerms(),
		Requirements: make([]hybrid.Link, 0, len(incoming)),
		Dependents:   make([]hybrid.Link, 0, len(outgoing)),
	}
	for _, e := range incoming {
		view.Requirements = append(view.Requirements, hybrid.Link{CourseID: e.SourceID, Kind: e.Kind})
	}
	for _, e := range outgoing {
		view.Dependents = append(view.Dependents, hybrid.Link{CourseID: e.DestinationID, Kind: e.Kind})
	}
	response.RespondOK(c, gin.H{"course": view})
}

func toCompletions(in []completionBody) ([]types.CompletionRecord, error) {
	out := make([]types.CompletionRecord, 0, len(in))
	for i, b := range in {
		id, ok := coursecode.Canonical(b.CourseID)
		if !ok {
			return nil, fmt.Errorf("%w: completions[%d]: bad course id %q", apperr.ErrInvalidArgument, i, b.CourseID)
		}
		out = append(out, types.CompletionRecord{
			CourseID: id,
			Status:   types.CompletionStatus(b.Status),
			Term:     types.ParseTerm(b.Term),
			Year:     b.Year,
		})
	}
	return out, nil
}
