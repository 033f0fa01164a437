package handlers

import (
	"errors"
	"net/http"

	"examquiz/logger"
	"examquiz/models"
	"examquiz/services"

	"github.com/gin-gonic/gin"
)

const categoryAll = "all"

type QuestionHandler struct {
	questionService *services.QuestionService
	log             *logger.Logger
}

func NewQuestionHandler(questionService *services.QuestionService, log *logger.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		log:             log,
	}
}

// ExamPage renders exam.html. Store failures render an empty page instead of an error.
func (h *QuestionHandler) ExamPage(c *gin.Context) {
	h.renderPage(c, "exam.html")
}

// QuizPage renders quiz.html the same way as ExamPage.
func (h *QuestionHandler) QuizPage(c *gin.Context) {
	h.renderPage(c, "quiz.html")
}

func (h *QuestionHandler) renderPage(c *gin.Context, name string) {
	questions, err := h.questionService.SampleAny(c.Request.Context(), services.SampleSize)
	if err != nil {
		h.log.Error("Failed to load questions for page", "page", name, "error", err)
		questions = nil
	}
	items := h.questionService.ToItems(questions)
	h.log.Debug("Sampled questions for page", "page", name, "count", len(items))

	c.HTML(http.StatusOK, name, gin.H{"questions": items})
}

// RandomQuestions serves /api/random-questions?type=single|multiple|judgement|all.
// Every requested category must have a full sample available.
func (h *QuestionHandler) RandomQuestions(c *gin.Context) {
	requested := c.DefaultQuery("type", categoryAll)

	var (
		questions []models.Question
		err       error
	)
	if requested == categoryAll {
		questions, err = h.questionService.SampleEveryCategory(c.Request.Context(), services.SampleSize)
	} else {
		category, ok := models.ParseCategory(requested)
		if !ok {
			h.respondError(c, services.ErrInvalidCategory)
			return
		}
		questions, err = h.questionService.SampleExactly(c.Request.Context(), category, services.SampleSize)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.questionService.ToItems(questions))
}

// RandomByCategory serves the per-category endpoints. Unlike RandomQuestions it returns
// whatever is available, including an empty list.
func (h *QuestionHandler) RandomByCategory(category models.Category) gin.HandlerFunc {
	return func(c *gin.Context) {
		questions, err := h.questionService.SampleRandom(c.Request.Context(), category, services.SampleSize)
		if err != nil {
			h.respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, h.questionService.ToItems(questions))
	}
}

func (h *QuestionHandler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, services.ErrInvalidCategory) {
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("Question request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
