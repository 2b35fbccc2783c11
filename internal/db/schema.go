package db

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		aggregate_id UUID NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type TEXT NOT NULL,
		event_data JSONB NOT NULL,
		metadata JSONB,
		version INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (aggregate_id, version)
	)`,

	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		sku TEXT NOT NULL,
		price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		available_colors TEXT[] NOT NULL,
		available_quantity INT NOT NULL DEFAULT 0 CHECK (available_quantity >= 0),
		image TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		reorder_threshold INT NOT NULL DEFAULT 10,
		variants JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		photo TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS credentials (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		password_hash TEXT NOT NULL,
		salt TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS roles (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		PRIMARY KEY (user_id, role)
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		status TEXT NOT NULL DEFAULT 'pending',
		items JSONB NOT NULL,
		total NUMERIC(12,2) NOT NULL,
		customer JSONB NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		shipping JSONB,
		refund JSONB,
		ordered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'low',
		read BOOLEAN NOT NULL DEFAULT FALSE,
		dedupe_key TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS notifications_dedupe_key_idx
		ON notifications (dedupe_key) WHERE dedupe_key IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS contact_submissions (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		forwarded BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS newsletter (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
