package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/controller"
	"github.com/lshigami/examflow/internal/dto"
	"github.com/lshigami/examflow/internal/service"
)

type UserTestController struct {
	userTestService   service.UserTestService
	submissionService service.SubmissionService
}

func NewUserTestController(uts service.UserTestService, ss service.SubmissionService) *UserTestController {
	return &UserTestController{
		userTestService:   uts,
		submissionService: ss,
	}
}

// GetAllTests godoc
// @Summary (User) List all available tests
// @Description Get a list of tests with their modality and number of parts.
// @Tags User - Tests
// @Produce json
// @Success 200 {array} dto.TestSummaryDTO
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /tests [get]
func (c *UserTestController) GetAllTests(ctx *gin.Context) {
	tests, err := c.userTestService.GetAllTests()
	if err != nil {
		log.Error().Err(err).Msg("User GetAllTests: Service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to retrieve tests", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, tests)
}

// GetTestDetails godoc
// @Summary (User) Get details of a specific test
// @Description Get a test with its ordered parts. Answer keys are never included.
// @Tags User - Tests
// @Produce json
// @Param test_id path int true "Test ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Test ID format"
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /tests/{test_id} [get]
func (c *UserTestController) GetTestDetails(ctx *gin.Context) {
	testID, ok := parseTestID(ctx)
	if !ok {
		return
	}
	testDetails, err := c.userTestService.GetTestDetails(testID)
	if err != nil {
		controller.Fail(ctx, "Failed to retrieve test", err)
		return
	}
	ctx.JSON(http.StatusOK, testDetails)
}

// GetMySubmissions godoc
// @Summary (User) List the caller's submissions for a test
// @Description Newest first, with aggregate score and band once evaluation finished.
// @Tags User - Submissions
// @Produce json
// @Param X-User-ID header string true "Candidate ID"
// @Param test_id path int true "Test ID"
// @Success 200 {array} dto.SubmissionSummaryDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid Test ID format"
// @Failure 401 {object} dto.ErrorResponse "Missing candidate ID"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /tests/{test_id}/my-submissions [get]
func (c *UserTestController) GetMySubmissions(ctx *gin.Context) {
	testID, ok := parseTestID(ctx)
	if !ok {
		return
	}
	subs, err := c.submissionService.GetUserSubmissionsForTest(ctx.Request.Context(), testID, controller.UserID(ctx))
	if err != nil {
		controller.Fail(ctx, "Failed to retrieve submissions", err)
		return
	}
	ctx.JSON(http.StatusOK, subs)
}

func parseTestID(ctx *gin.Context) (uint, bool) {
	testID, err := strconv.ParseUint(ctx.Param("test_id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid Test ID format"})
		return 0, false
	}
	return uint(testID), true
}
