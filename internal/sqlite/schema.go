// Package sqlite implements the SQLite storage backend for user stories and
// acceptance criteria.
package sqlite

// Schema DDL for all tables. Statements are idempotent and run on every Open.
const (
	createUserStories = `CREATE TABLE IF NOT EXISTS user_stories (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    persona TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createAcceptanceCriteria = `CREATE TABLE IF NOT EXISTS acceptance_criteria (
    id TEXT PRIMARY KEY,
    user_story_id TEXT NOT NULL,
    description TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (user_story_id) REFERENCES user_stories(id) ON DELETE CASCADE
);`
)

// Index DDL for common queries.
const (
	idxUserStoriesPersona   = `CREATE INDEX IF NOT EXISTS idx_user_stories_persona ON user_stories(persona);`
	idxUserStoriesCreated   = `CREATE INDEX IF NOT EXISTS idx_user_stories_created ON user_stories(created_at);`
	idxCriteriaStoryCreated = `CREATE INDEX IF NOT EXISTS idx_acceptance_criteria_story ON acceptance_criteria(user_story_id, created_at);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createUserStories,
	createAcceptanceCriteria,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxUserStoriesPersona,
	idxUserStoriesCreated,
	idxCriteriaStoryCreated,
}
