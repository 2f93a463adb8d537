package migrations

import (
	_ "embed"
)

//go:embed 0002_create_sessions.sql
var createSessionsSQL string

func init() {
	Migrations.MustRegister(
		execSQL(createSessionsSQL),
		execSQL(`DROP TABLE IF EXISTS quiz_answers; DROP TABLE IF EXISTS quiz_sessions`),
	)
}
