// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package stor

import (
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Columns present in early versions of the dongle table, dropped since.
var deprecatedDongleColumns = []string{"modules", "location"}

// dropDeprecatedColumns removes columns which are no longer part of the dongle
// model. AutoMigrate adds missing columns with their declared defaults but never
// removes anything, so this runs as a separate pass after it.
// The pass is idempotent and degrades to a no-op on a fresh database.
func dropDeprecatedColumns(db *gorm.DB) error {

	m := db.Migrator()

	if !m.HasTable(&Dongle{}) {
		// first run, AutoMigrate will have created everything
		return nil
	}

	for _, column := range deprecatedDongleColumns {
		if !m.HasColumn(&Dongle{}, column) {
			continue
		}
		log.Printf("Dropping deprecated dongle column %q", column)
		// on sqlite, gorm rebuilds the table and copies the remaining rows
		if err := m.DropColumn(&Dongle{}, column); err != nil {
			return err
		}
	}
	return nil
}
