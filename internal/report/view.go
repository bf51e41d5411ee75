package report

import (
	"fmt"
	"strings"
	"time"

	"yeoneunal/internal/api"
	"yeoneunal/internal/logging"
)

// DiseaseNames label the accuracy vector positions.
var DiseaseNames = []string{"뇌졸중", "퇴행성 뇌질환", "정상"}

// Fallback text for fields the analysis left empty.
const (
	PendingDisease = "분석 중..."
	PendingSummary = "분석 결과를 기다리고 있습니다."
)

// ExplanationFallback is shown for a risk with no explanation.
func ExplanationFallback(disease string) string {
	return fmt.Sprintf("%s 관련 설명입니다.", disease)
}

// Probability is one row of the probability table.
type Probability struct {
	Name    string
	Percent float64
	Tier    Tier
}

// RiskCard is one suspected condition with its explanation.
type RiskCard struct {
	Disease     string
	Percent     float64
	HasPercent  bool
	Tier        Tier
	Explanation string
}

// View is the display model of one report.
type View struct {
	Available       bool
	WardName        string
	RecordID        int64
	PrimaryDisease  string
	PrimaryAccuracy float64
	Dominant        Condition
	Probabilities   []Probability
	Risks           []RiskCard
	Transcript      string
	Summary         string
	CreatedAt       time.Time
	HasDate         bool
}

// NewView builds the view for rep. A report without an accuracy vector
// yields a view with Available false.
func NewView(rep *api.Report, wardName string) View {
	v := View{WardName: wardName}
	if rep == nil {
		return v
	}
	v.RecordID = rep.RecordID
	v.CreatedAt, v.HasDate = rep.Timestamp()

	if rep.Analysis.Kind == api.AnalysisMalformed {
		logging.ReportWarn("record %d: analysis is not a JSON object (%d bytes)", rep.RecordID, len(rep.Analysis.Raw))
	}
	if !rep.Analysis.HasAccuracy() {
		logging.ReportDebug("record %d: analysis %s without accuracy", rep.RecordID, rep.Analysis.Kind)
		return v
	}
	a := rep.Analysis.Analysis
	v.Available = true

	v.PrimaryDisease = PendingDisease
	if len(a.Risk) > 0 && strings.TrimSpace(a.Risk[0]) != "" {
		v.PrimaryDisease = a.Risk[0]
	}
	v.PrimaryAccuracy = a.Accuracy[0]
	v.Dominant = Dominant(a.Accuracy)

	for i, name := range DiseaseNames {
		if i >= len(a.Accuracy) {
			break
		}
		v.Probabilities = append(v.Probabilities, Probability{Name: name, Percent: a.Accuracy[i], Tier: TierFor(a.Accuracy[i])})
	}

	for i, disease := range a.Risk {
		card := RiskCard{Disease: disease, Explanation: ExplanationFallback(disease)}
		if i < len(a.Accuracy) {
			card.Percent, card.HasPercent = a.Accuracy[i], true
			card.Tier = TierFor(a.Accuracy[i])
		}
		if i < len(a.Explain) && strings.TrimSpace(a.Explain[i]) != "" {
			card.Explanation = a.Explain[i]
		}
		v.Risks = append(v.Risks, card)
	}

	v.Transcript = strings.TrimSpace(a.ASR)
	v.Summary = a.Narrative()
	if v.Summary == "" {
		v.Summary = PendingSummary
	}
	return v
}

// FormatPercent renders a percentage with at most one decimal.
func FormatPercent(p float64) string {
	s := fmt.Sprintf("%.1f", p)
	return strings.TrimSuffix(s, ".0") + "%"
}
