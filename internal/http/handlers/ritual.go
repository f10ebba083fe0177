package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/http/response"
	"github.com/yungbote/firstflame-backend/internal/platform/ctxutil"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
	"github.com/yungbote/firstflame-backend/internal/services"
)

type RitualHandlerDeps struct {
	Log        *logger.Logger
	Ritual     services.RitualService
	FlameState services.FlameStateRunner
}

type RitualHandler struct {
	log        *logger.Logger
	ritual     services.RitualService
	flameState services.FlameStateRunner
}

func NewRitualHandlerWithDeps(deps RitualHandlerDeps) *RitualHandler {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	flame := deps.FlameState
	if flame == nil && deps.Ritual != nil {
		flame = services.NewInlineFlameStateRunner(deps.Ritual)
	}
	return &RitualHandler{
		log:        log.With("handler", "RitualHandler"),
		ritual:     deps.Ritual,
		flameState: flame,
	}
}

type submitImprintRequest struct {
	QuestID string          `json:"quest_id"`
	Payload json.RawMessage `json:"payload"`
}

// GET /api/ritual/status
func (h *RitualHandler) GetStatus(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	st, err := h.ritual.Status(c.Request.Context(), userID)
	if err != nil {
		response.RespondRitualError(c, err)
		return
	}
	response.RespondOK(c, st)
}

// POST /api/ritual/days/:day/imprint
func (h *RitualHandler) SubmitImprint(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, response.CodeValidation, fmt.Errorf("%w: %q", ritual.ErrInvalidDay, c.Param("day")))
		return
	}
	var req submitImprintRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, response.CodeValidation, err)
			return
		}
	}
	p, err := h.ritual.SubmitImprint(c.Request.Context(), services.SubmitImprintInput{
		UserID:  userID,
		QuestID: req.QuestID,
		Day:     day,
		Payload: req.Payload,
	})
	if err != nil {
		response.RespondRitualError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"current_day_target":  p.CurrentDayTarget,
		"is_quest_complete":   p.IsQuestComplete,
		"last_advancement_at": p.LastAdvancementAt,
	})
}

// POST /api/ritual/ensure
func (h *RitualHandler) EnsureFlameState(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	st, err := h.flameState.Ensure(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("ensure flame state failed", "user_id", userID, "error", err)
		response.RespondRitualError(c, err)
		return
	}
	response.RespondOK(c, st)
}

func requestUser(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondRitualError(c, ritual.ErrUnauthorized)
		return uuid.Nil, false
	}
	return rd.UserID, true
}
