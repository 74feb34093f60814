package pronounce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

const systemPrompt = "너는 한국어 발음 전문 코치이자 언어치료사야. " +
	"학습자의 발음 결과와 정량 점수(report)를 바탕으로, " +
	"전문적인 코칭 리포트를 한국어로 작성해야 한다. " +
	"반드시 JSON만 출력하고, 다른 텍스트는 출력하지 마."

var userTemplate = template.Must(template.New("coach").Parse(`
[입력 정보]
- 연습해야 했던 문장(reference_text): {{.Reference}}
- 실제 음성 인식 결과(recognized_text): {{.Recognized}}
- 발음 평가 점수(report): {{.Report}}

[설명]
- report.overall: 종합 점수 (0~100)
- report.accuracy: 발음 정확도 (스크립트와 일치하는 정도, 0~100)
- report.fluency.score: 유창성 점수 (속도 안정성, 0~100)
- report.fluency.syllables_per_second: 초당 음절 수

[역할]
1. recognized_text가 다소 부정확해도 reference_text와 비교하여
   학습자가 원래 말하려던 자연스러운 문장(intended_sentence)을 추론한다.
2. 발음 정확도, 말 속도와 유창성, 리듬과 억양, 명료도를 기준으로 분석한다.

[summary] 번호와 줄바꿈을 활용한 3~5줄의 짧은 리포트.
[tips] 바로 연습할 수 있는 구체적인 팁 2~4개.
[level] overall, accuracy, fluency.score를 종합해 '초급', '중급', '고급' 중 하나.
[recommended_sentence] intended_sentence와 비슷하지만 더 짧고 받침과 모음이 골고루 섞인 연습 문장 하나.

[최종 출력 형식(JSON만 출력)]
{
  "intended_sentence": "...",
  "summary": "...",
  "tips": ["...", "..."],
  "level": "초급/중급/고급 중 하나",
  "recommended_sentence": "..."
}
`))

func userPrompt(reference, recognized string, rep Report) (string, error) {
	report, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("pronounce: encode report: %w", err)
	}
	var buf bytes.Buffer
	err = userTemplate.Execute(&buf, struct {
		Reference, Recognized, Report string
	}{reference, recognized, string(report)})
	if err != nil {
		return "", fmt.Errorf("pronounce: render prompt: %w", err)
	}
	return buf.String(), nil
}
