package pronounce

import "strings"

// Proficiency levels.
const (
	LevelAdvanced     = "고급"
	LevelIntermediate = "중급"
	LevelBeginner     = "초급"
)

// Feedback sources.
const (
	SourceLLM   = "llm"
	SourceRules = "rules"
)

// Feedback is the coaching part of an evaluation.
type Feedback struct {
	Summary             string   `json:"summary"`
	Tips                []string `json:"tips"`
	Level               string   `json:"level"`
	RecommendedSentence string   `json:"recommended_sentence"`
	IntendedSentence    string   `json:"intended_sentence"`
	Source              string   `json:"source"`
}

// Level maps an overall score to a proficiency level.
func Level(overall float64) string {
	switch {
	case overall >= 90:
		return LevelAdvanced
	case overall >= 75:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}

const (
	summaryAccurate = "발음이 전반적으로 매우 정확해요. 자연스럽게 잘 읽어주셨어요."
	summaryMostly   = "전체적으로 잘 읽었지만, 몇몇 부분에서 다소 부정확한 발음이 보여요."
	summaryDiffers  = "스크립트와 다른 부분이 꽤 있어서, 조금 더 천천히 따라 읽어보면 좋아요."

	tipAccuracy  = "스크립트를 눈으로 한 번 더 따라 읽으면서, 글자를 하나씩 또박또박 소리 내 보세요."
	tipSlow      = "말 속도가 조금 느린 편이에요. 문장을 더 끊김 없이 이어서 말해 보세요."
	tipFast      = "조금 빠르게 말하는 경향이 있어요. 한 단어씩 분리해서 더 또렷하게 읽어보면 좋습니다."
	tipSteady    = "말 속도가 적당해서 듣기 편해요. 지금 속도를 유지하면서 발음만 조금 더 또박또박 하면 좋아요."
	tipKeepGoing = "지금처럼 연습을 꾸준히 이어가면 발음이 더 자연스러워질 거예요!"
)

// RuleFeedback derives feedback from the report alone. The intended sentence
// is the trimmed reference, or the recognised text when there is none.
func RuleFeedback(reference, recognized string, rep Report) Feedback {
	var summary string
	switch {
	case rep.Accuracy >= 90:
		summary = summaryAccurate
	case rep.Accuracy >= 75:
		summary = summaryMostly
	default:
		summary = summaryDiffers
	}

	var tips []string
	if rep.Accuracy < 90 {
		tips = append(tips, tipAccuracy)
	}
	if rate := rep.Fluency.SyllablesPerSecond; rate > 0 {
		switch {
		case rate < IdealRateMin:
			tips = append(tips, tipSlow)
		case rate > IdealRateMax:
			tips = append(tips, tipFast)
		default:
			tips = append(tips, tipSteady)
		}
	}
	if len(tips) == 0 {
		tips = append(tips, tipKeepGoing)
	}

	intended := intendedSentence(reference, recognized)
	return Feedback{
		Summary:             summary,
		Tips:                tips,
		Level:               Level(rep.Overall),
		RecommendedSentence: intended,
		IntendedSentence:    intended,
		Source:              SourceRules,
	}
}

func intendedSentence(reference, recognized string) string {
	if s := strings.TrimSpace(reference); s != "" {
		return s
	}
	return strings.TrimSpace(recognized)
}
