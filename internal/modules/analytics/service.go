// Package analytics computes fleet-level risk statistics for the dashboard.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/harborline/harborwatch/internal/domain"
	"github.com/harborline/harborwatch/internal/risk"
)

// ContainerSource supplies the containers to analyze
type ContainerSource interface {
	GetAllActive() ([]domain.Container, error)
}

// FleetStats summarizes the risk profile of the active fleet. Scores are
// recomputed on the fly with the same scorer the engine uses, so the summary
// always reflects current time even between assessment sweeps.
type FleetStats struct {
	Total        int            `json:"total"`
	ByLevel      map[string]int `json:"by_level"`
	MeanScore    float64        `json:"mean_score"`
	StdDevScore  float64        `json:"std_dev_score"`
	MedianScore  float64        `json:"median_score"`
	P90Score     float64        `json:"p90_score"`
	MaxScore     int            `json:"max_score"`
	AtRisk       int            `json:"at_risk"`       // score >= exception threshold
	TopContainer string         `json:"top_container"` // highest-scoring container number
}

// HotContainer is one entry of the highest-risk list
type HotContainer struct {
	ContainerID     string   `json:"container_id"`
	ContainerNumber string   `json:"container_number"`
	RiskLevel       string   `json:"risk_level"`
	RiskScore       int      `json:"risk_score"`
	Reasons         []string `json:"reasons"`
}

// Service computes analytics over the active container fleet
type Service struct {
	source ContainerSource
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a new analytics service
func NewService(source ContainerSource, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		now:    time.Now,
		log:    log.With().Str("component", "analytics").Logger(),
	}
}

// SetClock overrides the wall clock (tests only)
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// FleetStats scores every active container and aggregates the distribution
func (s *Service) FleetStats() (FleetStats, error) {
	containers, err := s.source.GetAllActive()
	if err != nil {
		return FleetStats{}, fmt.Errorf("failed to load containers for analytics: %w", err)
	}

	stats := FleetStats{
		Total:   len(containers),
		ByLevel: map[string]int{},
	}
	if len(containers) == 0 {
		return stats, nil
	}

	now := s.now()
	scores := make([]float64, 0, len(containers))
	maxScore := -1

	for _, c := range containers {
		a := risk.Assess(c, now)
		scores = append(scores, float64(a.RiskScore))
		stats.ByLevel[string(a.RiskLevel)]++
		if a.ShouldCreateException {
			stats.AtRisk++
		}
		if a.RiskScore > maxScore {
			maxScore = a.RiskScore
			stats.TopContainer = c.ContainerNumber
		}
	}

	sort.Float64s(scores)

	stats.MaxScore = maxScore
	stats.MeanScore = stat.Mean(scores, nil)
	stats.StdDevScore = stat.StdDev(scores, nil)
	stats.MedianScore = stat.Quantile(0.5, stat.Empirical, scores, nil)
	stats.P90Score = stat.Quantile(0.9, stat.Empirical, scores, nil)

	return stats, nil
}

// HotContainers returns the limit highest-scoring active containers,
// descending by score with container number as tiebreaker
func (s *Service) HotContainers(limit int) ([]HotContainer, error) {
	if limit <= 0 {
		limit = 10
	}

	containers, err := s.source.GetAllActive()
	if err != nil {
		return nil, fmt.Errorf("failed to load containers for analytics: %w", err)
	}

	now := s.now()
	hot := make([]HotContainer, 0, len(containers))
	for _, c := range containers {
		a := risk.Assess(c, now)
		if a.RiskScore == 0 {
			continue
		}
		hot = append(hot, HotContainer{
			ContainerID:     c.ID,
			ContainerNumber: c.ContainerNumber,
			RiskLevel:       string(a.RiskLevel),
			RiskScore:       a.RiskScore,
			Reasons:         a.RiskReasons,
		})
	}

	sort.Slice(hot, func(i, j int) bool {
		if hot[i].RiskScore != hot[j].RiskScore {
			return hot[i].RiskScore > hot[j].RiskScore
		}
		return hot[i].ContainerNumber < hot[j].ContainerNumber
	})

	if len(hot) > limit {
		hot = hot[:limit]
	}
	return hot, nil
}
