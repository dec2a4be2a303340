package store

import (
	"context"
)

// DBStats holds aggregated statistics for every model in the database.
type DBStats struct {
	Models []ModelInfo        // A list of models in the database
	Stats  map[int]ModelStats // A mapping of model ids to their stats
}

// ModelStats holds aggregated statistics for a single stored model.
type ModelStats struct {
	States         int `json:"states"`          // The number of distinct states.
	Transitions    int `json:"transitions"`     // The number of distinct from->to links.
	TotalFrequency int `json:"total_frequency"` // The sum of all link frequencies; the number of trained transitions.
}

// GetModelStats returns the statistics of one model.
func (s *Store) GetModelStats(ctx context.Context, model ModelInfo) (ModelStats, error) {
	var stats ModelStats
	if err := s.stmtModelStates.QueryRowContext(ctx, model.Id).Scan(&stats.States); err != nil {
		return ModelStats{}, err
	}
	if err := s.stmtModelTransitions.QueryRowContext(ctx, model.Id).Scan(&stats.Transitions); err != nil {
		return ModelStats{}, err
	}
	if err := s.stmtModelFreq.QueryRowContext(ctx, model.Id).Scan(&stats.TotalFrequency); err != nil {
		return ModelStats{}, err
	}
	return stats, nil
}

// GetStats returns a snapshot of statistics for the entire database.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	modelInfos, err := s.GetModelInfos(ctx)
	if err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(modelInfos))
	modelStats := make(map[int]ModelStats, len(modelInfos))
	for _, v := range modelInfos {
		models = append(models, v)
		stats, err := s.GetModelStats(ctx, v)
		if err != nil {
			return nil, err
		}
		modelStats[v.Id] = stats
	}

	return &DBStats{
		Models: models,
		Stats:  modelStats,
	}, nil
}
