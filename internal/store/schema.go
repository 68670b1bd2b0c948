package store

// schema is applied in full against a freshly created database file. Each
// statement is executed independently inside a single transaction, the
// same pattern the teacher's ephemeral store uses for its smaller schema.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	project_path TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT,
	status TEXT NOT NULL DEFAULT 'active',
	observation_count INTEGER NOT NULL DEFAULT 0,
	summary_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_path);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

CREATE TABLE IF NOT EXISTS observations (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	subtitle TEXT,
	facts TEXT,
	narrative TEXT NOT NULL,
	concepts TEXT,
	files_read TEXT,
	files_modified TEXT,
	raw_tool_output TEXT,
	tool_name TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	token_count INTEGER NOT NULL DEFAULT 0,
	discovery_tokens INTEGER NOT NULL DEFAULT 0,
	importance INTEGER NOT NULL DEFAULT 0,
	superseded_by TEXT,
	superseded_at TEXT,
	deleted_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_observations_session ON observations(session_id);
CREATE INDEX IF NOT EXISTS idx_observations_type ON observations(type);
CREATE INDEX IF NOT EXISTS idx_observations_created ON observations(created_at);
CREATE INDEX IF NOT EXISTS idx_observations_current ON observations(superseded_by, deleted_at);

CREATE TABLE IF NOT EXISTS embeddings (
	observation_id TEXT PRIMARY KEY REFERENCES observations(id),
	vector BLOB NOT NULL,
	dims INTEGER NOT NULL,
	created_at TEXT NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS observations_fts USING fts5(
	title, subtitle, narrative, concepts, facts,
	content='observations', content_rowid='rowid', tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS observations_ai AFTER INSERT ON observations BEGIN
	INSERT INTO observations_fts(rowid, title, subtitle, narrative, concepts, facts)
	VALUES (new.rowid, new.title, new.subtitle, new.narrative, new.concepts, new.facts);
END;

CREATE TRIGGER IF NOT EXISTS observations_ad AFTER DELETE ON observations BEGIN
	INSERT INTO observations_fts(observations_fts, rowid, title, subtitle, narrative, concepts, facts)
	VALUES ('delete', old.rowid, old.title, old.subtitle, old.narrative, old.concepts, old.facts);
END;

CREATE TRIGGER IF NOT EXISTS observations_au AFTER UPDATE ON observations BEGIN
	INSERT INTO observations_fts(observations_fts, rowid, title, subtitle, narrative, concepts, facts)
	VALUES ('delete', old.rowid, old.title, old.subtitle, old.narrative, old.concepts, old.facts);
	INSERT INTO observations_fts(rowid, title, subtitle, narrative, concepts, facts)
	VALUES (new.rowid, new.title, new.subtitle, new.narrative, new.concepts, new.facts);
END;

CREATE TABLE IF NOT EXISTS session_summaries (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	summary TEXT NOT NULL,
	key_decisions TEXT,
	files_modified TEXT,
	concepts TEXT,
	created_at TEXT NOT NULL,
	token_count INTEGER NOT NULL DEFAULT 0,
	request TEXT,
	investigated TEXT,
	learned TEXT,
	completed TEXT,
	next_steps TEXT
);

CREATE TABLE IF NOT EXISTS pending_messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	tool_name TEXT NOT NULL,
	tool_output TEXT NOT NULL,
	call_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	retry_count INTEGER NOT NULL DEFAULT 0,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_pending_status ON pending_messages(status, created_at);

CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	UNIQUE(name, type)
);

CREATE TABLE IF NOT EXISTS relations (
	subject_id TEXT NOT NULL REFERENCES entities(id),
	predicate TEXT NOT NULL,
	object_id TEXT NOT NULL REFERENCES entities(id),
	PRIMARY KEY (subject_id, predicate, object_id)
);

CREATE TABLE IF NOT EXISTS mentions (
	observation_id TEXT NOT NULL REFERENCES observations(id),
	entity_id TEXT NOT NULL REFERENCES entities(id),
	PRIMARY KEY (observation_id, entity_id)
);

CREATE INDEX IF NOT EXISTS idx_mentions_entity ON mentions(entity_id);

CREATE TABLE IF NOT EXISTS user_observations (
	id TEXT PRIMARY KEY,
	source_project TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	subtitle TEXT,
	facts TEXT,
	narrative TEXT NOT NULL,
	concepts TEXT,
	files_read TEXT,
	files_modified TEXT,
	raw_tool_output TEXT,
	tool_name TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	token_count INTEGER NOT NULL DEFAULT 0,
	discovery_tokens INTEGER NOT NULL DEFAULT 0,
	importance INTEGER NOT NULL DEFAULT 0,
	superseded_by TEXT,
	superseded_at TEXT,
	deleted_at TEXT
);

CREATE VIRTUAL TABLE IF NOT EXISTS user_observations_fts USING fts5(
	title, subtitle, narrative, concepts, facts,
	content='user_observations', content_rowid='rowid', tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS user_observations_ai AFTER INSERT ON user_observations BEGIN
	INSERT INTO user_observations_fts(rowid, title, subtitle, narrative, concepts, facts)
	VALUES (new.rowid, new.title, new.subtitle, new.narrative, new.concepts, new.facts);
END;

CREATE TABLE IF NOT EXISTS config (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
