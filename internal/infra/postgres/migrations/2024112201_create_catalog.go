package migrations

import (
	_ "embed"
)

//go:embed 0001_create_catalog.sql
var createCatalogSQL string

func init() {
	Migrations.MustRegister(
		execSQL(createCatalogSQL),
		execSQL(`DROP TABLE IF EXISTS decision_weights; DROP TABLE IF EXISTS questions; DROP TABLE IF EXISTS gifts`),
	)
}
