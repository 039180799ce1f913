package classifier

import (
	"encoding/json"

	"github.com/truffle/expertise-miner/pkg/model"
)

type completionResult struct {
	SkillKey   string   `json:"skill_key"`
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
	Rationale  string   `json:"rationale"`
}

type completionBody struct {
	Results []completionResult `json:"results"`
}

// parseCompletion decodes the model's strict-JSON completion. It returns
// ok=false only on malformed JSON; missing fields within an otherwise
// valid document are defaulted rather than treated as an error.
func parseCompletion(content string) ([]model.Evaluation, bool) {
	var body completionBody
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return nil, false
	}

	evaluations := make([]model.Evaluation, 0, len(body.Results))
	for _, r := range body.Results {
		if r.SkillKey == "" {
			continue
		}

		label := model.Label(r.Label)
		if !label.Valid() {
			label = model.LabelNeutral
		}

		confidence := 0.5
		if r.Confidence != nil {
			confidence = *r.Confidence
		}

		evaluations = append(evaluations, model.Evaluation{
			SkillKey:   r.SkillKey,
			Label:      label,
			Confidence: confidence,
			Rationale:  r.Rationale,
		}.Clamp())
	}

	return evaluations, true
}
