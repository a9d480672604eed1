package types

// UserStoryStatistics aggregates story counts. AvgCriteriaPerStory is 0 when
// there are no stories.
type UserStoryStatistics struct {
	TotalStories        int64            `json:"total_stories"`
	TotalCriteria       int64            `json:"total_criteria"`
	PersonasCount       int64            `json:"personas_count"`
	AvgCriteriaPerStory float64          `json:"avg_criteria_per_story"`
	StoriesByPersona    map[string]int64 `json:"stories_by_persona"`
}

// AcceptanceCriteriaStatistics aggregates criteria counts.
// CriteriaDistribution maps every story id to its criteria count, zero
// included.
type AcceptanceCriteriaStatistics struct {
	TotalCriteria        int64            `json:"total_criteria"`
	TotalStories         int64            `json:"total_stories"`
	AvgCriteriaPerStory  float64          `json:"avg_criteria_per_story"`
	CriteriaDistribution map[string]int64 `json:"criteria_distribution"`
}
