package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/controller"
	"github.com/lshigami/examflow/internal/dto"
	"github.com/lshigami/examflow/internal/service"
	"github.com/lshigami/examflow/internal/session"
)

type SessionController struct {
	sessionService service.SessionService
}

func NewSessionController(sessionService service.SessionService) *SessionController {
	return &SessionController{sessionService: sessionService}
}

// CreateSession godoc
// @Summary (User) Open an exam session
// @Description Creates an idle session for a test. Only one unfinished session per candidate and test is allowed unless configured otherwise.
// @Tags User - Sessions
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param request body dto.SessionCreateDTO true "Test to sit"
// @Success 201 {object} session.Snapshot
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Failure 409 {object} dto.ErrorResponse "An active session already exists"
// @Router /sessions [post]
func (c *SessionController) CreateSession(ctx *gin.Context) {
	var req dto.SessionCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	snap, err := c.sessionService.Create(ctx.Request.Context(), controller.UserID(ctx), req.TestID)
	if err != nil {
		controller.Fail(ctx, "Failed to create session", err)
		return
	}
	ctx.JSON(http.StatusCreated, snap)
}

// GetSession godoc
// @Summary (User) Get session state
// @Description Current phase, part, remaining time and answered parts.
// @Tags User - Sessions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Snapshot
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Router /sessions/{session_id} [get]
func (c *SessionController) GetSession(ctx *gin.Context) {
	snap, err := c.sessionService.Get(controller.UserID(ctx), ctx.Param("session_id"))
	c.respond(ctx, "Failed to get session", snap, err)
}

// GetHistory godoc
// @Summary (User) Get session phase history
// @Tags User - Sessions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 200 {array} session.Transition
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Router /sessions/{session_id}/history [get]
func (c *SessionController) GetHistory(ctx *gin.Context) {
	history, err := c.sessionService.History(controller.UserID(ctx), ctx.Param("session_id"))
	if err != nil {
		controller.Fail(ctx, "Failed to get session history", err)
		return
	}
	ctx.JSON(http.StatusOK, history)
}

// StartSession godoc
// @Summary (User) Start the session
// @Description Starts the timers and, for speaking tests, the recording. Connect the audio socket first.
// @Tags User - Sessions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Snapshot
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 409 {object} dto.ErrorResponse "Session already started or device busy"
// @Failure 412 {object} dto.ErrorResponse "No audio client connected"
// @Router /sessions/{session_id}/start [post]
func (c *SessionController) StartSession(ctx *gin.Context) {
	snap, err := c.sessionService.Start(ctx.Request.Context(), controller.UserID(ctx), ctx.Param("session_id"))
	c.respond(ctx, "Failed to start session", snap, err)
}

// AdvanceSession godoc
// @Summary (User) Move to the next part
// @Description Submits the session when called on the last part.
// @Tags User - Sessions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Snapshot
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 409 {object} dto.ErrorResponse "Not responding to a part"
// @Router /sessions/{session_id}/advance [post]
func (c *SessionController) AdvanceSession(ctx *gin.Context) {
	snap, err := c.sessionService.Advance(ctx.Request.Context(), controller.UserID(ctx), ctx.Param("session_id"))
	c.respond(ctx, "Failed to advance session", snap, err)
}

// NavigateSession godoc
// @Summary (User) Jump to a part
// @Description Only globally timed tests allow free navigation.
// @Tags User - Sessions
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Param request body dto.NavigateDTO true "Zero-based part index"
// @Success 200 {object} session.Snapshot
// @Failure 400 {object} dto.ErrorResponse "Invalid index"
// @Failure 409 {object} dto.ErrorResponse "Navigation not allowed"
// @Router /sessions/{session_id}/navigate [post]
func (c *SessionController) NavigateSession(ctx *gin.Context) {
	var req dto.NavigateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	snap, err := c.sessionService.Navigate(controller.UserID(ctx), ctx.Param("session_id"), *req.Index)
	c.respond(ctx, "Failed to navigate", snap, err)
}

// PauseSession godoc
// @Summary (User) Pause the session
// @Tags User - Sessions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Snapshot
// @Failure 409 {object} dto.ErrorResponse "Session cannot be paused"
// @Router /sessions/{session_id}/pause [post]
func (c *SessionController) PauseSession(ctx *gin.Context) {
	snap, err := c.sessionService.Pause(controller.UserID(ctx), ctx.Param("session_id"))
	c.respond(ctx, "Failed to pause session", snap, err)
}

// ResumeSession godoc
// @Summary (User) Resume a paused session
// @Tags User - Sessions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Snapshot
// @Failure 409 {object} dto.ErrorResponse "Session cannot be resumed"
// @Router /sessions/{session_id}/resume [post]
func (c *SessionController) ResumeSession(ctx *gin.Context) {
	snap, err := c.sessionService.Resume(controller.UserID(ctx), ctx.Param("session_id"))
	c.respond(ctx, "Failed to resume session", snap, err)
}

// RecordAnswer godoc
// @Summary (User) Save the answer to a part
// @Description Replaces any earlier answer to the part. Only the fields for the part's type may be set.
// @Tags User - Sessions
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Param part_id path int true "Part ID"
// @Param answer body dto.AnswerDTO true "Answer"
// @Success 200 {object} session.Snapshot
// @Failure 400 {object} dto.ErrorResponse "Answer does not fit the part"
// @Failure 409 {object} dto.ErrorResponse "Session is not accepting answers"
// @Router /sessions/{session_id}/answers/{part_id} [put]
func (c *SessionController) RecordAnswer(ctx *gin.Context) {
	partID, err := strconv.ParseUint(ctx.Param("part_id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid Part ID format"})
		return
	}
	var req dto.AnswerDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	snap, err := c.sessionService.RecordAnswer(controller.UserID(ctx), ctx.Param("session_id"), uint(partID), req.Payload())
	c.respond(ctx, "Failed to record answer", snap, err)
}

// SubmitSession godoc
// @Summary (User) Submit the session
// @Description Freezes the answers and recording into a submission and starts evaluation. Retrying after a failed submit is safe.
// @Tags User - Sessions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 202 {object} model.Submission "Submission created, evaluation started"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 409 {object} dto.ErrorResponse "Session cannot be submitted"
// @Failure 500 {object} dto.ErrorResponse "Submission could not be stored; retry"
// @Router /sessions/{session_id}/submit [post]
func (c *SessionController) SubmitSession(ctx *gin.Context) {
	sub, err := c.sessionService.Submit(ctx.Request.Context(), controller.UserID(ctx), ctx.Param("session_id"))
	if err != nil {
		controller.Fail(ctx, "Failed to submit session", err)
		return
	}
	log.Info().Str("sessionID", ctx.Param("session_id")).Str("submissionID", sub.ID).Msg("User SubmitSession: submitted")
	ctx.JSON(http.StatusAccepted, sub)
}

// AbandonSession godoc
// @Summary (User) Abandon the session
// @Description Ends the session without a submission and discards the recording.
// @Tags User - Sessions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Snapshot
// @Failure 409 {object} dto.ErrorResponse "Session already submitted"
// @Router /sessions/{session_id}/abandon [post]
func (c *SessionController) AbandonSession(ctx *gin.Context) {
	snap, err := c.sessionService.Abandon(controller.UserID(ctx), ctx.Param("session_id"))
	c.respond(ctx, "Failed to abandon session", snap, err)
}

func (c *SessionController) respond(ctx *gin.Context, message string, snap session.Snapshot, err error) {
	if err != nil {
		controller.Fail(ctx, message, err)
		return
	}
	ctx.JSON(http.StatusOK, snap)
}
