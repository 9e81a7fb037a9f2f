package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates all tables needed by the ladder.
// Safe to call multiple times - uses IF NOT EXISTS.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Schema is the full DDL. The position uniqueness constraints are DEFERRABLE so a
// single UPDATE may exchange two rows' coordinates; they are still checked at the end
// of every statement.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    paternal_surname TEXT NOT NULL,
    maternal_surname TEXT NOT NULL DEFAULT '',
    nickname TEXT,
    email TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL DEFAULT 'player' CHECK (role IN ('admin', 'player')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS categories (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    level INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS pyramids (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    row_count INT NOT NULL CHECK (row_count >= 1),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pyramid_categories (
    pyramid_id INT NOT NULL REFERENCES pyramids(id) ON DELETE CASCADE,
    category_id INT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    PRIMARY KEY (pyramid_id, category_id)
);

CREATE TABLE IF NOT EXISTS teams (
    id SERIAL PRIMARY KEY,
    player1_id INT REFERENCES users(id) ON DELETE SET NULL,
    player2_id INT REFERENCES users(id) ON DELETE SET NULL,
    category_id INT NOT NULL REFERENCES categories(id),
    wins INT NOT NULL DEFAULT 0,
    losses INT NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'idle' CHECK (status IN ('idle', 'winner', 'looser', 'risky')),
    losing_streak INT NOT NULL DEFAULT 0,
    last_result TEXT NOT NULL DEFAULT 'none' CHECK (last_result IN ('up', 'down', 'stayed', 'none')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT teams_player1_id_key UNIQUE (player1_id),
    CONSTRAINT teams_player2_id_key UNIQUE (player2_id),
    CONSTRAINT chk_team_distinct_players CHECK (player1_id IS NULL OR player1_id IS DISTINCT FROM player2_id)
);

CREATE TABLE IF NOT EXISTS positions (
    id SERIAL PRIMARY KEY,
    pyramid_id INT NOT NULL REFERENCES pyramids(id) ON DELETE CASCADE,
    team_id INT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
    row_position INT NOT NULL,
    col_position INT NOT NULL,
    wins INT NOT NULL DEFAULT 0,
    losses INT NOT NULL DEFAULT 0,
    losing_streak INT NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'idle' CHECK (status IN ('idle', 'winner', 'looser', 'risky')),
    last_result TEXT NOT NULL DEFAULT 'none' CHECK (last_result IN ('up', 'down', 'stayed', 'none')),
    defendable BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_position_slot CHECK (row_position >= 1 AND col_position >= 1 AND col_position <= row_position),
    CONSTRAINT positions_pyramid_slot_key UNIQUE (pyramid_id, row_position, col_position) DEFERRABLE INITIALLY IMMEDIATE,
    CONSTRAINT positions_pyramid_team_key UNIQUE (pyramid_id, team_id) DEFERRABLE INITIALLY IMMEDIATE
);

CREATE INDEX IF NOT EXISTS idx_positions_team ON positions(team_id);

CREATE TABLE IF NOT EXISTS matches (
    id SERIAL PRIMARY KEY,
    pyramid_id INT NOT NULL REFERENCES pyramids(id) ON DELETE CASCADE,
    challenger_team_id INT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
    defender_team_id INT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
    winner_team_id INT REFERENCES teams(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'played', 'rejected', 'cancelled')),
    evidence_key TEXT,
    status_changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT chk_match_distinct_teams CHECK (challenger_team_id <> defender_team_id),
    CONSTRAINT chk_match_winner CHECK (winner_team_id IS NULL OR winner_team_id IN (challenger_team_id, defender_team_id))
);

CREATE INDEX IF NOT EXISTS idx_matches_pyramid_status ON matches(pyramid_id, status);
CREATE INDEX IF NOT EXISTS idx_matches_challenger ON matches(challenger_team_id);
CREATE INDEX IF NOT EXISTS idx_matches_defender ON matches(defender_team_id);

CREATE TABLE IF NOT EXISTS position_history (
    id SERIAL PRIMARY KEY,
    pyramid_id INT REFERENCES pyramids(id) ON DELETE SET NULL,
    match_id INT REFERENCES matches(id) ON DELETE SET NULL,
    team_id INT REFERENCES teams(id) ON DELETE SET NULL,
    affected_team_id INT REFERENCES teams(id) ON DELETE SET NULL,
    old_row INT,
    old_col INT,
    new_row INT,
    new_col INT,
    affected_old_row INT,
    affected_old_col INT,
    affected_new_row INT,
    affected_new_col INT,
    effective_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_position_history_pyramid ON position_history(pyramid_id, effective_at DESC);
CREATE INDEX IF NOT EXISTS idx_position_history_match ON position_history(match_id);

CREATE TABLE IF NOT EXISTS notifications (
    id SERIAL PRIMARY KEY,
    user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    pyramid_id INT REFERENCES pyramids(id) ON DELETE CASCADE,
    match_id INT REFERENCES matches(id) ON DELETE CASCADE,
    kind TEXT NOT NULL,
    message TEXT NOT NULL,
    viewed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id) WHERE viewed_at IS NULL;
`
