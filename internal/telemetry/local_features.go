package telemetry

import (
	"context"

	"github.com/ejseo87/openai-assistants-2025/internal/metrics"
)

const featuresVersion = "2"

// EmitLocalFeatures records size features of the user's question, never its text.
func EmitLocalFeatures(ctx context.Context, question string) {
	emitFeatures(ctx, "local_features", "user", question)
}

// EmitAnswerFeatures records size features of the assistant's final answer.
func EmitAnswerFeatures(ctx context.Context, answer string) {
	emitFeatures(ctx, "answer_features", "assistant", answer)
}

func emitFeatures(ctx context.Context, event, key, text string) {
	if !(FeaturesEnabled() && ObserveEnabled()) {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	f := metrics.CountFeatures(text)
	Emit(event, map[string]any{
		"turn_id":          turnID,
		"features_version": featuresVersion,
		key: map[string]any{
			"bytes": f.Bytes,
			"runes": f.Runes,
			"words": f.Words,
			"lines": f.Lines,
			"urls":  f.URLs,
		},
	})
}
