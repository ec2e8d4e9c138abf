package actions

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"outreach_backend/internal/orchestrator"
	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// DiscoveryTrigger schedules an extra discovery query for the control loop.
type DiscoveryTrigger interface {
	EnqueueQuery(q orchestrator.SearchQuery) error
}

// Handler serves the action endpoints the review channel's buttons hit, plus
// the stats and manual scrape-trigger endpoints.
type Handler struct {
	leads    store.LeadStore
	trigger  DiscoveryTrigger
	validate *validator.Validator
	log      *logger.Logger
	now      func() time.Time
}

func NewHandler(leads store.LeadStore, trigger DiscoveryTrigger, validate *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{
		leads:    leads,
		trigger:  trigger,
		validate: validate,
		log:      log,
		now:      time.Now,
	}
}

type actionFunc func(c *gin.Context, id uuid.UUID) (store.Lead, error)

// applyAction runs one idempotent lifecycle action. Re-applying an action a
// lead has already absorbed succeeds without changing anything, so double
// taps on a review card button are harmless.
func (h *Handler) applyAction(c *gin.Context, action actionFunc, name string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	lead, err := action(c, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(c, apperr.NotFound("lead not found"))
			return
		}
		h.log.DatabaseError("apply "+name+" action", err)
		respondError(c, apperr.Internal("could not apply action"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"action":  name,
		"lead_id": lead.ID,
		"state":   lead.State,
	})
}

func (h *Handler) MarkSent(c *gin.Context) {
	h.applyAction(c, func(c *gin.Context, id uuid.UUID) (store.Lead, error) {
		return h.leads.MarkSent(c.Request.Context(), id)
	}, "sent")
}

func (h *Handler) MarkReplied(c *gin.Context) {
	h.applyAction(c, func(c *gin.Context, id uuid.UUID) (store.Lead, error) {
		return h.leads.MarkReplied(c.Request.Context(), id)
	}, "replied")
}

func (h *Handler) MarkClosed(c *gin.Context) {
	h.applyAction(c, func(c *gin.Context, id uuid.UUID) (store.Lead, error) {
		return h.leads.MarkClosed(c.Request.Context(), id)
	}, "closed")
}

// Stats reports pipeline health for dashboards and manual checks.
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := h.leads.StateCounts(ctx)
	if err != nil {
		h.log.DatabaseError("read state counts", err)
		respondError(c, apperr.Internal("could not read stats"))
		return
	}

	now := h.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	queuedToday, err := h.leads.CountQueuedSince(ctx, dayStart)
	if err != nil {
		h.log.DatabaseError("count queued today", err)
		respondError(c, apperr.Internal("could not read stats"))
		return
	}

	sentToday, err := h.leads.CountSentSince(ctx, dayStart)
	if err != nil {
		h.log.DatabaseError("count sent today", err)
		respondError(c, apperr.Internal("could not read stats"))
		return
	}

	backlog, err := h.leads.CountBacklog(ctx)
	if err != nil {
		h.log.DatabaseError("count backlog", err)
		respondError(c, apperr.Internal("could not read stats"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"queued_today": queuedToday,
		"sent_today":   sentToday,
		"backlog":      backlog,
		"states":       counts,
	})
}

type scrapeRequest struct {
	BusinessType string `json:"business_type" validate:"required,min=2"`
	Location     string `json:"location"`
}

// TriggerScrape queues an ad-hoc discovery query. The query runs during the
// next control-loop cycle, not inline with the request.
func (h *Handler) TriggerScrape(c *gin.Context) {
	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(c, apperr.Validation(err.Error()))
		return
	}

	query := orchestrator.SearchQuery{
		BusinessType: strings.TrimSpace(req.BusinessType),
		Location:     strings.TrimSpace(req.Location),
	}
	if query.Location == "" {
		query = orchestrator.ParseQuery(query.BusinessType)
	}

	if err := h.trigger.EnqueueQuery(query); err != nil {
		respondError(c, apperr.Conflict(err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":        "queued",
		"business_type": query.BusinessType,
		"location":      query.Location,
	})
}
