package db

// Schema is the DDL for the scout activity journal.
const Schema = `
CREATE TABLE IF NOT EXISTS activity (
    id              TEXT PRIMARY KEY,
    candidate_id    TEXT NOT NULL,
    action          TEXT NOT NULL,
    outcome         TEXT NOT NULL,
    detail          TEXT,
    created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activity_created ON activity(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_activity_candidate ON activity(candidate_id);
CREATE INDEX IF NOT EXISTS idx_activity_action ON activity(action, outcome);
`
