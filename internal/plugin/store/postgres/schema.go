package postgres

import _ "embed"

// schemaSQL holds the journal schema: the entries table with its jsonb
// mood/location/video/tags columns and the unique (user_id, client_id)
// index, plus the users table. Applied idempotently by the migrator.
//
//go:embed db/schema.sql
var schemaSQL string

// ForceImport gives tests something to reference so this package's init()
// registration runs without a blank import.
var ForceImport = 0
