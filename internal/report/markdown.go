package report

import (
	"fmt"
	"strings"
)

// Markdown renders a view as a markdown document.
func Markdown(v View, lang Language) string {
	var sb strings.Builder
	t := texts(lang)

	title := t.title
	if v.WardName != "" {
		title = fmt.Sprintf(t.titleFor, v.WardName)
	}
	sb.WriteString("# " + title + "\n\n")
	if v.HasDate {
		fmt.Fprintf(&sb, "*%s: %s*\n\n", t.date, v.CreatedAt.Format("2006-01-02 15:04"))
	}

	if !v.Available {
		sb.WriteString(t.unavailable + "\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "**%s:** %s (%s)  \n", t.dominant, v.Dominant.Label(lang), v.PrimaryDisease)
	fmt.Fprintf(&sb, "**%s:** %s\n\n", t.accuracy, FormatPercent(v.PrimaryAccuracy))

	sb.WriteString("## " + t.probabilities + "\n\n")
	fmt.Fprintf(&sb, "| %s | %s | %s |\n|---|---:|---|\n", t.condition, t.percent, t.tier)
	for _, p := range v.Probabilities {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", p.Name, FormatPercent(p.Percent), p.Tier.Label(lang))
	}
	sb.WriteString("\n")

	if len(v.Risks) > 0 {
		sb.WriteString("## " + t.risks + "\n\n")
		for i, r := range v.Risks {
			if r.HasPercent {
				fmt.Fprintf(&sb, "%d. **%s** (%s, %s)\n", i+1, r.Disease, FormatPercent(r.Percent), r.Tier.Label(lang))
			} else {
				fmt.Fprintf(&sb, "%d. **%s**\n", i+1, r.Disease)
			}
			sb.WriteString("   " + r.Explanation + "\n")
		}
		sb.WriteString("\n")
	}

	if v.Transcript != "" {
		sb.WriteString("## " + t.transcript + "\n\n")
		for _, line := range strings.Split(v.Transcript, "\n") {
			sb.WriteString("> " + line + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## " + t.summary + "\n\n")
	sb.WriteString(v.Summary + "\n")
	return sb.String()
}

type markdownTexts struct {
	title, titleFor, date, unavailable          string
	dominant, accuracy, probabilities           string
	condition, percent, tier, risks, transcript string
	summary                                     string
}

func texts(lang Language) markdownTexts {
	if lang == English {
		return markdownTexts{
			title: "Voice analysis report", titleFor: "Voice analysis report for %s",
			date: "Analyzed", unavailable: "Analysis data is not available yet.",
			dominant: "Result", accuracy: "Accuracy", probabilities: "Probabilities",
			condition: "Condition", percent: "Probability", tier: "Level",
			risks: "Suspected conditions", transcript: "Transcript", summary: "Summary",
		}
	}
	return markdownTexts{
		title: "음성 분석 리포트", titleFor: "%s님의 음성 분석 리포트",
		date: "분석일", unavailable: "분석 데이터가 아직 없습니다.",
		dominant: "결과", accuracy: "정확도", probabilities: "질환별 확률",
		condition: "질환", percent: "확률", tier: "단계",
		risks: "의심 질환", transcript: "통화 내용", summary: "종합 소견",
	}
}
