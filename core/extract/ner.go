package extract

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/ragpipe/helper"
)

// DefaultNER creates a NER function backed by distilbert-NER.
// Detects PERSON, ORGANIZATION, LOCATION and MISC entities.
func DefaultNER() (NERFunc, error) {
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(text string) (map[string][]string, error) {
		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		if len(result.Entities) == 0 {
			return nil, nil
		}

		entities := make(map[string][]string)
		for _, entity := range result.Entities[0] {
			category := nerCategory(entity.Entity)
			name := strings.TrimSpace(entity.Word)
			if name == "" {
				continue
			}
			entities[category] = append(entities[category], name)
		}

		return entities, nil
	}, nil
}

// nerCategory maps a BIO-tagged NER label to the extractor's category names.
func nerCategory(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		label = label[2:]
	}
	switch label {
	case "PER":
		return "person"
	case "ORG":
		return "organization"
	case "LOC":
		return "location"
	case "MISC":
		return "misc"
	default:
		return strings.ToLower(label)
	}
}
