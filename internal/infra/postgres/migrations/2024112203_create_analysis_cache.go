package migrations

import (
	_ "embed"
)

//go:embed 0003_create_analysis_cache.sql
var createAnalysisCacheSQL string

func init() {
	Migrations.MustRegister(
		execSQL(createAnalysisCacheSQL),
		execSQL(`DROP TABLE IF EXISTS ai_analysis_cache`),
	)
}
