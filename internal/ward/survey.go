package ward

import (
	"errors"
	"fmt"

	"yeoneunal/internal/api"
)

// Survey bounds.
const (
	MinQuestions = 5
	MaxQuestions = 20
	MaxAnswer    = 4
)

var (
	ErrQuestionCount = errors.New("question count out of range")
	ErrAnswerCount   = errors.New("answer count does not match questions")
	ErrAnswerRange   = errors.New("answer out of range")
)

// Questions is the canonical self-diagnosis survey. Items are grouped by
// the condition they probe: ALS, dementia, Parkinson's, stroke.
var Questions = []string{
	"손이나 팔에 힘이 빠져 물건을 자주 떨어뜨린다",
	"평소보다 움직임이 느리거나 동작이 힘들어 보인다",
	"말이 뭉개지거나 발음이 불명확하다",
	"음식을 삼키기 어려워하거나 사레가 자주 든다",
	"가만히 있어도 근육이 떨리거나 경련이 있다",
	"같은 질문을 반복하거나 방금 일을 자주 잊는다",
	"간단한 계산이나 익숙한 일을 헷갈려 한다",
	"익숙한 길이나 장소에서 방향을 잃는다",
	"단어가 잘 떠오르지 않거나 말이 자주 막힌다",
	"성격이나 감정이 예전과 다르게 변했다",
	"손이나 몸이 쉬고 있을 때 떨림이 있다",
	"걸음이 짧아지거나 보폭이 줄었다",
	"움직임이 굼뜨고 몸이 굳은 듯하다",
	"표정 변화가 줄어 무표정해 보인다",
	"글씨가 전보다 작아지거나 흐려졌다",
	"얼굴, 팔, 다리 중 한쪽 힘이 갑자기 약해진다",
	"말이 어눌해지거나 의사소통이 어려워진다",
	"갑작스럽고 심한 두통을 호소한다",
	"한쪽 시야가 흐려지거나 잘 보이지 않는 순간이 있다",
	"어지러워 서있기나 걷기가 어려운 순간이 있다",
}

// ScaleLabels maps answer values 0-4 to their display text.
var ScaleLabels = []string{"매우 아니다", "아니다", "보통", "그렇다", "매우 그렇다"}

// Questionnaire returns the first n canonical questions.
func Questionnaire(n int) ([]string, error) {
	if n < MinQuestions || n > MaxQuestions {
		return nil, fmt.Errorf("%w: %d (want %d-%d)", ErrQuestionCount, n, MinQuestions, MaxQuestions)
	}
	out := make([]string, n)
	copy(out, Questions[:n])
	return out, nil
}

// ValidateAnswers checks there is one answer per question, each 0-4.
func ValidateAnswers(questions []string, answers []int) error {
	if len(answers) != len(questions) {
		return fmt.Errorf("%w: got %d, want %d", ErrAnswerCount, len(answers), len(questions))
	}
	for i, a := range answers {
		if a < 0 || a > MaxAnswer {
			return fmt.Errorf("%w: question %d has %d", ErrAnswerRange, i+1, a)
		}
	}
	return nil
}

// BuildDiagnosis pairs questions with answers in the requested schema.
func BuildDiagnosis(schema api.DiagnosisSchema, questions []string, answers []int) (api.DiagnosisPayload, error) {
	if err := ValidateAnswers(questions, answers); err != nil {
		return api.DiagnosisPayload{}, err
	}
	if schema == "" {
		schema = api.DiagnosisV2
	}
	if schema != api.DiagnosisV1 && schema != api.DiagnosisV2 {
		return api.DiagnosisPayload{}, fmt.Errorf("unknown diagnosis schema %q", schema)
	}
	items := make([]api.DiagnosisItem, len(questions))
	for i, q := range questions {
		items[i] = api.DiagnosisItem{Text: q, Answer: answers[i]}
	}
	return api.DiagnosisPayload{Schema: schema, Items: items}, nil
}

// ScaleLabel returns the label for an answer value, or "" when out of range.
func ScaleLabel(answer int) string {
	if answer < 0 || answer >= len(ScaleLabels) {
		return ""
	}
	return ScaleLabels[answer]
}
