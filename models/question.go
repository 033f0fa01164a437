package models

// Stored question_type labels of the question bank.
const (
	LabelSingleChoice   = "单项选择题"
	LabelMultipleChoice = "多项选择题"
	LabelTrueFalse      = "判断题"
)

// Category is the name a client uses to ask for one kind of question.
type Category string

const (
	CategorySingle    Category = "single"
	CategoryMultiple  Category = "multiple"
	CategoryJudgement Category = "judgement"
)

// Categories lists every category in the order the combined sample draws them.
var Categories = []Category{CategorySingle, CategoryMultiple, CategoryJudgement}

func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case CategorySingle, CategoryMultiple, CategoryJudgement:
		return c, true
	}
	return "", false
}

// Label returns the question_type value stored for the category.
func (c Category) Label() string {
	switch c {
	case CategorySingle:
		return LabelSingleChoice
	case CategoryMultiple:
		return LabelMultipleChoice
	case CategoryJudgement:
		return LabelTrueFalse
	}
	return ""
}

type Question struct {
	ID              uint    `json:"id" gorm:"primaryKey"`
	QuestionType    string  `json:"question_type" gorm:"size:50;index"`
	QuestionContent string  `json:"question_content" gorm:"type:text"`
	Options         *string `json:"options" gorm:"type:text"`        // JSON text
	CorrectAnswer   *string `json:"correct_answer" gorm:"type:text"` // JSON text
	Explanation     string  `json:"explanation" gorm:"type:text"`
}

func (Question) TableName() string {
	return "exam_questions"
}
