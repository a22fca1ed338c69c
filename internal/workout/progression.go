package workout

import (
	"context"

	"github.com/myrjola/liftplan/internal/tablestore"
)

// WeightIncrement is added to the suggested weight after the user has marked the weight as achieved.
const WeightIncrement = 2.5

// NextWeight applies the progressive overload rule to the most recent log of an exercise.
// A missing weight counts as zero. Negative weights pass through unchanged.
func NextWeight(log ExerciseLog) float64 {
	var base float64
	if log.WeightUsed != nil {
		base = *log.WeightUsed
	}
	if log.WeightAchieved {
		return base + WeightIncrement
	}
	return base
}

// Oracle suggests working weights from the exercise history. It never writes.
type Oracle struct {
	store tablestore.Store
}

func NewOracle(store tablestore.Store) *Oracle {
	return &Oracle{store: store}
}

// SuggestWeight returns the suggested weight or nil if the exercise has no logs yet.
func (o *Oracle) SuggestWeight(ctx context.Context, userID string, exerciseID string) (*float64, error) {
	suggestion, err := o.suggest(ctx, o.store, userID, exerciseID)
	if err != nil {
		return nil, storageError("suggest weight", err)
	}
	return suggestion, nil
}

func (o *Oracle) suggest(
	ctx context.Context,
	store tablestore.Store,
	userID string,
	exerciseID string,
) (*float64, error) {
	log, err := latestLog(ctx, store, userID, exerciseID)
	if err != nil {
		return nil, err
	}
	if log == nil {
		return nil, nil //nolint:nilnil // no suggestion without history.
	}
	next := NextWeight(*log)
	return &next, nil
}
