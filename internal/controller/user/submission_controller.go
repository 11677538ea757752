package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lshigami/examflow/internal/controller"
	"github.com/lshigami/examflow/internal/service"
)

type SubmissionController struct {
	submissionService service.SubmissionService
}

func NewSubmissionController(submissionService service.SubmissionService) *SubmissionController {
	return &SubmissionController{submissionService: submissionService}
}

// GetSubmission godoc
// @Summary (User) Get a submission
// @Description The frozen answers with per-part evaluation state, feedback and the aggregate score.
// @Tags User - Submissions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param submission_id path string true "Submission ID"
// @Success 200 {object} dto.SubmissionDetailDTO
// @Failure 404 {object} dto.ErrorResponse "Submission not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /submissions/{submission_id} [get]
func (c *SubmissionController) GetSubmission(ctx *gin.Context) {
	detail, err := c.submissionService.GetSubmissionDetails(ctx.Request.Context(), controller.UserID(ctx), ctx.Param("submission_id"))
	if err != nil {
		controller.Fail(ctx, "Failed to retrieve submission", err)
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

// Reevaluate godoc
// @Summary (User) Retry evaluation of a submission
// @Description Re-runs every part that is not complete and re-aggregates. Completed parts keep their scores.
// @Tags User - Submissions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param submission_id path string true "Submission ID"
// @Success 200 {object} dto.EvaluationReportDTO
// @Failure 404 {object} dto.ErrorResponse "Submission not found"
// @Failure 500 {object} dto.ErrorResponse "Evaluation failed"
// @Router /submissions/{submission_id}/reevaluate [post]
func (c *SubmissionController) Reevaluate(ctx *gin.Context) {
	report, err := c.submissionService.Reevaluate(ctx.Request.Context(), controller.UserID(ctx), ctx.Param("submission_id"))
	if err != nil {
		controller.Fail(ctx, "Failed to re-evaluate submission", err)
		return
	}
	ctx.JSON(http.StatusOK, report)
}
