package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"examquiz/logger"
	"examquiz/models"
)

// SampleSize is how many questions each endpoint draws per category.
const SampleSize = 5

var (
	ErrInvalidCategory       = errors.New("invalid question type")
	ErrInsufficientQuestions = errors.New("not enough questions in the question bank")
	ErrInvalidCount          = errors.New("sample size must be positive")
)

var tracer = otel.Tracer("examquiz/services")

type QuestionService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionService(db *gorm.DB, log *logger.Logger) *QuestionService {
	return &QuestionService{db: db, log: log}
}

// QuestionItem is a question as served to clients.
type QuestionItem struct {
	ID              uint           `json:"id"`
	QuestionType    string         `json:"question_type"`
	QuestionContent string         `json:"question_content"`
	Options         any            `json:"options"`
	CorrectAnswer   datatypes.JSON `json:"correct_answer"`
	Explanation     string         `json:"explanation"`
}

// EnsureSchema creates exam_questions when it is missing. An existing table is left as is.
func (s *QuestionService) EnsureSchema(ctx context.Context) error {
	migrator := s.db.WithContext(ctx).Migrator()
	if migrator.HasTable(&models.Question{}) {
		return nil
	}
	if err := migrator.CreateTable(&models.Question{}); err != nil {
		return fmt.Errorf("create exam_questions: %w", err)
	}
	s.log.Info("Created question table", "table", models.Question{}.TableName())
	return nil
}

// SampleRandom returns up to count questions in random order. An empty category samples
// the whole table; otherwise only rows carrying the category's label are considered.
func (s *QuestionService) SampleRandom(ctx context.Context, category models.Category, count int) ([]models.Question, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if category != "" && category.Label() == "" {
		return nil, ErrInvalidCategory
	}

	ctx, span := tracer.Start(ctx, "QuestionService.SampleRandom", trace.WithAttributes(
		attribute.String("question.category", string(category)),
		attribute.Int("question.count", count),
	))
	defer span.End()

	query := s.db.WithContext(ctx).Model(&models.Question{})
	if category != "" {
		query = query.Where("question_type = ?", category.Label())
	}

	var questions []models.Question
	if err := query.Order("RANDOM()").Limit(count).Find(&questions).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	span.SetAttributes(attribute.Int("question.returned", len(questions)))
	return questions, nil
}

// SampleAny draws from the whole table with plain SQL, so rows with unknown type
// labels are included.
func (s *QuestionService) SampleAny(ctx context.Context, count int) ([]models.Question, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	ctx, span := tracer.Start(ctx, "QuestionService.SampleAny", trace.WithAttributes(
		attribute.Int("question.count", count),
	))
	defer span.End()

	var questions []models.Question
	err := s.db.WithContext(ctx).Raw(
		"SELECT id, question_type, question_content, options, correct_answer, explanation "+
			"FROM exam_questions ORDER BY RANDOM() LIMIT ?", count,
	).Scan(&questions).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	return questions, nil
}

// SampleExactly fails with ErrInsufficientQuestions unless count questions of the
// category are available.
func (s *QuestionService) SampleExactly(ctx context.Context, category models.Category, count int) ([]models.Question, error) {
	questions, err := s.SampleRandom(ctx, category, count)
	if err != nil {
		return nil, err
	}
	if len(questions) != count {
		return nil, fmt.Errorf("%w: %s has %d of %d", ErrInsufficientQuestions, category, len(questions), count)
	}
	return questions, nil
}

// SampleEveryCategory draws exactly count questions of each category and shuffles them together.
func (s *QuestionService) SampleEveryCategory(ctx context.Context, count int) ([]models.Question, error) {
	all := make([]models.Question, 0, count*len(models.Categories))
	for _, category := range models.Categories {
		questions, err := s.SampleExactly(ctx, category, count)
		if err != nil {
			return nil, err
		}
		all = append(all, questions...)
	}
	rand.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	return all, nil
}

// ParseOptions decodes stored options. Missing or malformed values yield nil; the
// latter is logged with the given key/value pairs.
func (s *QuestionService) ParseOptions(raw *string, keysAndValues ...interface{}) any {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	var options any
	if err := json.Unmarshal([]byte(*raw), &options); err != nil {
		s.log.Warn("Malformed question options", append(keysAndValues, "error", err)...)
		return nil
	}
	return options
}

// parseAnswer keeps valid JSON as is and quotes anything else as a JSON string.
func parseAnswer(raw *string) datatypes.JSON {
	if raw == nil {
		return nil
	}
	trimmed := bytes.TrimSpace([]byte(*raw))
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return datatypes.JSON(trimmed)
	}
	quoted, _ := json.Marshal(*raw)
	return datatypes.JSON(quoted)
}

func (s *QuestionService) ToItem(q models.Question) QuestionItem {
	return QuestionItem{
		ID:              q.ID,
		QuestionType:    q.QuestionType,
		QuestionContent: q.QuestionContent,
		Options:         s.ParseOptions(q.Options, "question_id", q.ID),
		CorrectAnswer:   parseAnswer(q.CorrectAnswer),
		Explanation:     q.Explanation,
	}
}

func (s *QuestionService) ToItems(questions []models.Question) []QuestionItem {
	items := make([]QuestionItem, 0, len(questions))
	for _, q := range questions {
		items = append(items, s.ToItem(q))
	}
	return items
}
