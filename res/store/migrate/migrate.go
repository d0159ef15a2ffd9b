// Package migrate applies ordered, versioned schema changes against a gorm
// database and records each applied version in the schema_version ledger.
//
// Units are registered statically (no filesystem discovery); discovery order
// never affects the outcome because Apply sorts by the unit's from-version
// before running anything. Migrations are forward-only: a failing unit
// aborts the pass and no rollback of earlier units is attempted.
package migrate

import (
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Unit is a single schema transformation from version From to version To.
// Run must be safe to execute at most once; structural statements should
// use IF NOT EXISTS guards where the dialect allows it.
type Unit struct {
	From int
	To   int
	Name string

	Run func(tx *gorm.DB) error
}

type ledgerRow struct {
	Version   int       `gorm:"column:version;primaryKey"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

func (ledgerRow) TableName() string {
	return "schema_version"
}

// Current returns the highest version recorded in the ledger, or 0 when the
// ledger table does not exist yet (a fresh database).
func Current(db *gorm.DB) (int, error) {
	if !db.Migrator().HasTable("schema_version") {
		return 0, nil
	}

	var version int
	result := db.Raw("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", result.Error)
	}

	return version, nil
}

// Apply brings the database from its current version up through every
// registered unit, in ascending from-version order. Each unit's schema
// change and its ledger append commit in the same transaction, so the
// ledger only ever reflects fully-completed units. The number of units
// applied is returned; re-running against an up-to-date ledger applies
// nothing.
func Apply(logger *log.Logger, db *gorm.DB, units []Unit) (int, error) {
	current, err := Current(db)
	if err != nil {
		return 0, err
	}
	logger.Printf("Database schema version: %d", current)

	sorted := make([]Unit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

	applied := 0
	for _, unit := range sorted {
		if unit.From < current || unit.To <= current {
			continue
		}
		if unit.From != current {
			return applied, fmt.Errorf("schema version gap: at version %d, next unit migrates %d -> %d", current, unit.From, unit.To)
		}

		logger.Printf("Applying migration %s (%d -> %d)", unit.Name, unit.From, unit.To)

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := unit.Run(tx); err != nil {
				return err
			}
			return tx.Create(&ledgerRow{Version: unit.To, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return applied, fmt.Errorf("migration %s (%d -> %d) failed: %w", unit.Name, unit.From, unit.To, err)
		}

		current = unit.To
		applied++
	}

	return applied, nil
}
