package repository

// postgresSchema is applied statement by statement by (*Postgres).Migrate.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		total_points  BIGINT NOT NULL DEFAULT 0,
		frozen_points BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT users_points_check CHECK (frozen_points >= 0 AND frozen_points <= total_points)
	)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id                    UUID PRIMARY KEY,
		creator_id            UUID NOT NULL REFERENCES users(id),
		title                 TEXT NOT NULL,
		description           TEXT NOT NULL DEFAULT '',
		max_points_per_option BIGINT NOT NULL CHECK (max_points_per_option > 0),
		votes_yes             BIGINT NOT NULL DEFAULT 0,
		votes_no              BIGINT NOT NULL DEFAULT 0,
		frozen_points         BIGINT NOT NULL,
		result_published      BOOLEAN NOT NULL DEFAULT FALSE,
		result                TEXT CHECK (result IN ('yes', 'no')),
		is_paused             BOOLEAN NOT NULL DEFAULT FALSE,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		settled_at            TIMESTAMPTZ,
		CONSTRAINT projects_votes_check CHECK (
			votes_yes <= max_points_per_option AND votes_no <= max_points_per_option
		)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_creator ON projects(creator_id)`,

	`CREATE TABLE IF NOT EXISTS votes (
		seq        BIGSERIAL PRIMARY KEY,
		id         UUID NOT NULL UNIQUE,
		project_id UUID NOT NULL REFERENCES projects(id),
		voter_id   UUID NOT NULL REFERENCES users(id),
		option     TEXT NOT NULL CHECK (option IN ('yes', 'no')),
		points     BIGINT NOT NULL CHECK (points > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_project ON votes(project_id, seq)`,

	`CREATE TABLE IF NOT EXISTS hidden_projects (
		user_id    UUID NOT NULL REFERENCES users(id),
		project_id UUID NOT NULL REFERENCES projects(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, project_id)
	)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		seq           BIGSERIAL PRIMARY KEY,
		id            UUID NOT NULL UNIQUE,
		user_id       UUID NOT NULL REFERENCES users(id),
		project_id    UUID REFERENCES projects(id),
		entry_type    TEXT NOT NULL,
		delta         BIGINT NOT NULL,
		frozen_delta  BIGINT NOT NULL,
		description   TEXT NOT NULL,
		balance_after BIGINT NOT NULL,
		frozen_after  BIGINT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_project ON ledger_entries(project_id, seq)`,

	`CREATE TABLE IF NOT EXISTS withdrawals (
		id          UUID PRIMARY KEY,
		user_id     UUID NOT NULL REFERENCES users(id),
		points      BIGINT NOT NULL CHECK (points > 0),
		status      TEXT NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		reviewed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status, created_at)`,
}

// sqliteSchema mirrors postgresSchema. SQLite executes one statement at a time.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		total_points  INTEGER NOT NULL DEFAULT 0,
		frozen_points INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL,
		CHECK (frozen_points >= 0 AND frozen_points <= total_points)
	)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id                    TEXT PRIMARY KEY,
		creator_id            TEXT NOT NULL REFERENCES users(id),
		title                 TEXT NOT NULL,
		description           TEXT NOT NULL DEFAULT '',
		max_points_per_option INTEGER NOT NULL CHECK (max_points_per_option > 0),
		votes_yes             INTEGER NOT NULL DEFAULT 0,
		votes_no              INTEGER NOT NULL DEFAULT 0,
		frozen_points         INTEGER NOT NULL,
		result_published      INTEGER NOT NULL DEFAULT 0,
		result                TEXT CHECK (result IN ('yes', 'no')),
		is_paused             INTEGER NOT NULL DEFAULT 0,
		created_at            DATETIME NOT NULL,
		settled_at            DATETIME,
		CHECK (votes_yes <= max_points_per_option AND votes_no <= max_points_per_option)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_creator ON projects(creator_id)`,

	`CREATE TABLE IF NOT EXISTS votes (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		project_id TEXT NOT NULL REFERENCES projects(id),
		voter_id   TEXT NOT NULL REFERENCES users(id),
		option     TEXT NOT NULL CHECK (option IN ('yes', 'no')),
		points     INTEGER NOT NULL CHECK (points > 0),
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_project ON votes(project_id, seq)`,

	`CREATE TABLE IF NOT EXISTS hidden_projects (
		user_id    TEXT NOT NULL REFERENCES users(id),
		project_id TEXT NOT NULL REFERENCES projects(id),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, project_id)
	)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		user_id       TEXT NOT NULL REFERENCES users(id),
		project_id    TEXT REFERENCES projects(id),
		entry_type    TEXT NOT NULL,
		delta         INTEGER NOT NULL,
		frozen_delta  INTEGER NOT NULL,
		description   TEXT NOT NULL,
		balance_after INTEGER NOT NULL,
		frozen_after  INTEGER NOT NULL,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_project ON ledger_entries(project_id, seq)`,

	`CREATE TABLE IF NOT EXISTS withdrawals (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id),
		points      INTEGER NOT NULL CHECK (points > 0),
		status      TEXT NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
		created_at  DATETIME NOT NULL,
		reviewed_at DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status, created_at)`,
}
