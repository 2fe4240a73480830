/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package storage

// Settings bundles the tunables the teacher's settings.go threads through
// package-level globals; here they are fields on a handle instead, so tests
// can build isolated instances with different tuning side by side.
type Settings struct {
	TuplesPerTileGroup uint32
	ActiveBucketCount  int
	DefaultTheta       float64
}

// DefaultSettings returns the documented default tuning
// (tuples_per_tilegroup=1000). The §8 scenarios and the package tests use a
// deliberately small tuples_per_tilegroup=4 instead.
func DefaultSettings() Settings {
	return Settings{
		TuplesPerTileGroup: 1000,
		ActiveBucketCount:  4,
		DefaultTheta:       0.3,
	}
}

// Db is the explicit process handle Design Notes §9 replaces the
// teacher's package-level singleton (database.go's `databases` map and
// GetInstance()-style globals) with: every operation reaches the catalog
// and transaction manager through a Db value passed explicitly, never
// through a hidden global. Tests construct as many isolated Dbs as they
// need; none survive past the test that created them.
type Db struct {
	Settings Settings
	Catalog  *CatalogManager
	Txn      *TimestampOrderingTransactionManager

	Logger Logger
	Stats  StatsSink
}

// NewDb wires a fresh catalog and transaction manager together. logger and
// stats may be nil, in which case NopLogger/NopStats are used.
func NewDb(settings Settings, logger Logger, stats StatsSink) *Db {
	if logger == nil {
		logger = NopLogger{}
	}
	if stats == nil {
		stats = NopStats{}
	}
	cat := NewCatalogManager()
	return &Db{
		Settings: settings,
		Catalog:  cat,
		Txn:      NewTimestampOrderingTransactionManager(cat, logger, stats),
		Logger:   logger,
		Stats:    stats,
	}
}

// CreateTable registers a new DataTable bound to this Db's catalog, using
// the Db's tuning settings.
func (db *Db) CreateTable(schema Schema) *DataTable {
	return NewDataTable(db.Catalog, schema, db.Settings.TuplesPerTileGroup, db.Settings.ActiveBucketCount)
}
