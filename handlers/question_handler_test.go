package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"examquiz/logger"
	"examquiz/models"
	"examquiz/services"
	"examquiz/templates"
)

type questionJSON struct {
	ID              uint            `json:"id"`
	QuestionType    string          `json:"question_type"`
	QuestionContent string          `json:"question_content"`
	Options         json.RawMessage `json:"options"`
	CorrectAnswer   json.RawMessage `json:"correct_answer"`
	Explanation     string          `json:"explanation"`
}

type fixture struct {
	db     *gorm.DB
	router *gin.Engine
}

// newFixture seeds counts[label] rows per label; a nil map skips schema creation.
func newFixture(t *testing.T, counts map[string]int) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "exams.db")), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := logger.NewNop()
	svc := services.NewQuestionService(db, log)
	if counts != nil {
		require.NoError(t, svc.EnsureSchema(context.Background()))
	}
	options := `{"A": "first", "B": "second"}`
	answer := `"A"`
	for label, n := range counts {
		for i := 0; i < n; i++ {
			require.NoError(t, db.Create(&models.Question{
				QuestionType:    label,
				QuestionContent: label + " prompt",
				Options:         &options,
				CorrectAnswer:   &answer,
				Explanation:     "explained",
			}).Error)
		}
	}

	tmpl, err := templates.Load("")
	require.NoError(t, err)

	h := NewQuestionHandler(svc, log)
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.GET("/", h.ExamPage)
	r.GET("/quiz", h.QuizPage)
	r.GET("/api/random-questions", h.RandomQuestions)
	r.GET("/api/random-single", h.RandomByCategory(models.CategorySingle))
	r.GET("/api/random-multiple", h.RandomByCategory(models.CategoryMultiple))
	r.GET("/api/random-judgement", h.RandomByCategory(models.CategoryJudgement))

	return &fixture{db: db, router: r}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeQuestions(t *testing.T, rec *httptest.ResponseRecorder) []questionJSON {
	t.Helper()
	var out []questionJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	require.Contains(t, out, "error")
	return out["error"]
}

var fullBank = map[string]int{
	models.LabelSingleChoice:   6,
	models.LabelMultipleChoice: 5,
	models.LabelTrueFalse:      5,
}

func TestRandomQuestionsAll(t *testing.T) {
	f := newFixture(t, fullBank)

	rec := f.get(t, "/api/random-questions?type=all")
	require.Equal(t, http.StatusOK, rec.Code)

	questions := decodeQuestions(t, rec)
	require.Len(t, questions, 15)
	perLabel := map[string]int{}
	for _, q := range questions {
		perLabel[q.QuestionType]++
		assert.JSONEq(t, `{"A": "first", "B": "second"}`, string(q.Options))
		assert.JSONEq(t, `"A"`, string(q.CorrectAnswer))
	}
	assert.Equal(t, 5, perLabel[models.LabelSingleChoice])
	assert.Equal(t, 5, perLabel[models.LabelMultipleChoice])
	assert.Equal(t, 5, perLabel[models.LabelTrueFalse])
}

func TestRandomQuestionsDefaultsToAll(t *testing.T) {
	f := newFixture(t, fullBank)

	rec := f.get(t, "/api/random-questions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeQuestions(t, rec), 15)
}

func TestRandomQuestionsAllShortCategory(t *testing.T) {
	f := newFixture(t, map[string]int{
		models.LabelSingleChoice:   6,
		models.LabelMultipleChoice: 5,
		models.LabelTrueFalse:      4,
	})

	rec := f.get(t, "/api/random-questions?type=all")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, decodeError(t, rec))
}

func TestRandomQuestionsSingleCategory(t *testing.T) {
	f := newFixture(t, fullBank)

	for _, category := range models.Categories {
		rec := f.get(t, "/api/random-questions?type="+string(category))
		require.Equal(t, http.StatusOK, rec.Code, category)

		questions := decodeQuestions(t, rec)
		require.Len(t, questions, services.SampleSize)
		for _, q := range questions {
			assert.Equal(t, category.Label(), q.QuestionType)
		}
	}
}

func TestRandomQuestionsSingleCategoryShort(t *testing.T) {
	f := newFixture(t, map[string]int{models.LabelTrueFalse: 4})

	rec := f.get(t, "/api/random-questions?type=judgement")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeError(t, rec), "not enough questions")
}

func TestRandomQuestionsRejectsUnknownType(t *testing.T) {
	f := newFixture(t, fullBank)

	for _, target := range []string{
		"/api/random-questions?type=essay",
		"/api/random-questions?type=",
		"/api/random-questions?type=ALL",
	} {
		rec := f.get(t, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, services.ErrInvalidCategory.Error(), decodeError(t, rec))
	}
}

func TestRandomByCategoryIsLenient(t *testing.T) {
	f := newFixture(t, map[string]int{
		models.LabelSingleChoice:   9,
		models.LabelMultipleChoice: 2,
	})

	cases := []struct {
		path  string
		label string
		want  int
	}{
		{"/api/random-single", models.LabelSingleChoice, 5},
		{"/api/random-multiple", models.LabelMultipleChoice, 2},
		{"/api/random-judgement", models.LabelTrueFalse, 0},
	}
	for _, tc := range cases {
		rec := f.get(t, tc.path)
		require.Equal(t, http.StatusOK, rec.Code, tc.path)

		questions := decodeQuestions(t, rec)
		assert.Len(t, questions, tc.want, tc.path)
		for _, q := range questions {
			assert.Equal(t, tc.label, q.QuestionType)
		}
	}

	assert.Equal(t, "[]", f.get(t, "/api/random-judgement").Body.String())
}

func TestStoreFailureReturns500(t *testing.T) {
	f := newFixture(t, nil)

	for _, target := range []string{"/api/random-single", "/api/random-questions?type=single", "/api/random-questions"} {
		rec := f.get(t, target)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
		assert.NotEmpty(t, decodeError(t, rec))
	}
}

func TestPagesRenderQuestions(t *testing.T) {
	f := newFixture(t, map[string]int{
		models.LabelSingleChoice: 3,
		"legacy":                 4,
	})

	for _, target := range []string{"/", "/quiz"} {
		rec := f.get(t, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "prompt")
		assert.Contains(t, rec.Body.String(), "A. first")
		assert.NotContains(t, rec.Body.String(), "No questions available.")
	}
}

func TestPagesShowDecodedAnswers(t *testing.T) {
	f := newFixture(t, map[string]int{})
	answer := `["A","C"]`
	require.NoError(t, f.db.Create(&models.Question{
		QuestionType:    models.LabelMultipleChoice,
		QuestionContent: "pick two",
		CorrectAnswer:   &answer,
	}).Error)

	rec := f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<p class="answer">A, C</p>`)
	assert.NotContains(t, rec.Body.String(), "&#34;")

	rec = f.get(t, "/quiz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-answer="A, C"`)
}

func TestPagesDegradeOnStoreFailure(t *testing.T) {
	f := newFixture(t, nil)

	for _, target := range []string{"/", "/quiz"} {
		rec := f.get(t, target)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "No questions available.")
	}
}

func TestMalformedOptionsServeNull(t *testing.T) {
	f := newFixture(t, map[string]int{})
	broken := `{"A": "unterminated`
	require.NoError(t, f.db.Create(&models.Question{
		QuestionType:    models.LabelSingleChoice,
		QuestionContent: "broken options",
		Options:         &broken,
	}).Error)

	rec := f.get(t, "/api/random-single")
	require.Equal(t, http.StatusOK, rec.Code)

	questions := decodeQuestions(t, rec)
	require.Len(t, questions, 1)
	assert.Equal(t, "null", string(questions[0].Options))
	assert.Equal(t, "null", string(questions[0].CorrectAnswer))
	assert.Equal(t, "broken options", questions[0].QuestionContent)
}
