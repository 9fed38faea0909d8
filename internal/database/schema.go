package database

// Schema is applied on startup. All uniqueness invariants the services rely
// on live here: contact identity, the single-OPEN-conversation rule and the
// webhook redelivery guard are enforced by the database, not by in-memory
// checks.
const Schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	platform TEXT NOT NULL,
	platform_id TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_identity
	ON contacts(platform, platform_id);

CREATE TABLE IF NOT EXISTS integrations (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	instance_name TEXT NOT NULL DEFAULT '',
	base_url TEXT NOT NULL DEFAULT '',
	api_key TEXT NOT NULL DEFAULT '',
	agent_id TEXT,
	status TEXT NOT NULL DEFAULT 'DISCONNECTED',
	callback_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL REFERENCES contacts(id),
	integration_id TEXT NOT NULL REFERENCES integrations(id),
	platform TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'OPEN',
	agent_id TEXT,
	unread_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_single_open
	ON conversations(contact_id, integration_id) WHERE status = 'OPEN';

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	sender TEXT NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	media_type TEXT,
	media_url TEXT,
	media_mime TEXT,
	media_filename TEXT,
	media_size INTEGER,
	media_caption TEXT,
	provider_message_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_provider_id
	ON messages(conversation_id, provider_message_id)
	WHERE provider_message_id != '';
CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	system_prompt TEXT NOT NULL DEFAULT '',
	temperature REAL NOT NULL DEFAULT 0.7,
	max_tokens INTEGER NOT NULL DEFAULT 1024,
	api_key TEXT NOT NULL DEFAULT '',
	listing_search INTEGER NOT NULL DEFAULT 0,
	reply_in_groups INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS listings (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	city TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	price REAL NOT NULL DEFAULT 0,
	bedrooms INTEGER NOT NULL DEFAULT 0,
	code TEXT NOT NULL DEFAULT '',
	images TEXT NOT NULL DEFAULT '[]',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
