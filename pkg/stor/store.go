// Copyright 2024 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// The stor package manages the storage of our entities.
package stor

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type (

	// generic store
	dbStore struct {
		db *gorm.DB
	}

	// entity stores
	dongleStore     dbStore
	assignmentStore dbStore
	editStore       dbStore
	dashboardStore  dbStore

	// Store interface, giving access to specialized interfaces
	Store interface {
		Dongle() DongleRepository
		Assignment() AssignmentRepository
		Edit() EditRepository
		Dashboard() DashboardRepository
		Close() error
	}

	// DongleRepository interface, defining dongle operations
	DongleRepository interface {
		List() (*[]Dongle, error)
		ListAvailable() ([]string, error)
		Count() (int64, error)
		Get(dongleID string) (*Dongle, error)
		Create(d *Dongle) error
		Update(dongleID string, notes, defaultOwner, state, changedBy, changeNotes string) ([]string, error)
	}

	// AssignmentRepository interface, defining assignment event operations.
	// The event log is append-only: no update nor deletion is exposed.
	AssignmentRepository interface {
		Active() (map[string]ActiveAssignment, error)
		CheckedOut() ([]CheckedOutDongle, error)
		CheckOut(dongleID, assignedTo, notes string) error
		CheckIn(dongleID, notes string) error
		History(filter AssignmentFilter, limit int) (*[]AssignmentEvent, error)
		DistinctDongleIDs() ([]string, error)
		DistinctAssignees() ([]string, error)
	}

	// EditRepository interface, defining edit record operations.
	// The audit log is append-only: no update nor deletion is exposed.
	EditRepository interface {
		ForDongle(dongleID string, limit int) (*[]DongleEdit, error)
		History(filter EditFilter, limit int) (*[]DongleEdit, error)
		DistinctEditors() ([]string, error)
		DistinctFields() ([]string, error)
	}

	// DashboardRepository interface, defining dashboard operations
	DashboardRepository interface {
		GetDashboard() (*DashboardData, error)
	}
)

// implementation of the different repository interfaces
func (s *dbStore) Dongle() DongleRepository {
	return (*dongleStore)(s)
}

func (s *dbStore) Assignment() AssignmentRepository {
	return (*assignmentStore)(s)
}

func (s *dbStore) Edit() EditRepository {
	return (*editStore)(s)
}

// Dashboard implements Store.
func (s *dbStore) Dashboard() DashboardRepository {
	return (*dashboardStore)(s)
}

// Close releases the underlying database connection.
func (s *dbStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// List of dongle states, action types and edited field names as strings.
// These values are part of the durable format and must not change.
const (
	STATE_WORKING     = "Working"
	STATE_NOT_WORKING = "Not Working"
	STATE_MISSING     = "Missing"
	STATE_RETIRED     = "Retired"

	ACTION_CHECK_OUT = "check_out"
	ACTION_CHECK_IN  = "check_in"

	FIELD_DEFAULT_OWNER = "Default Owner"
	FIELD_STATE         = "State"
	FIELD_NOTES         = "Notes"
)

// Defaults applied to legacy rows created before a migration ran
const (
	DEFAULT_VERSION = "N/A"
	DEFAULT_OWNER   = "Admin"
	DEFAULT_STATE   = STATE_WORKING
)

// Errors signaled by the store
var (
	ErrDuplicateID    = errors.New("dongle identifier already exists")
	ErrDongleNotFound = errors.New("dongle not found")
)

// Init initializes the database
func Init(dsn string) (Store, error) {
	var err error

	dialect, cnx := dbFromURI(dsn)
	if dialect == "error" {
		return nil, fmt.Errorf("incorrect database source name: %q", dsn)
	}

	// add parameters specific to the dialect
	cnx = addParamsDialectSpecific(cnx, dialect)

	// database logger
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level (Silent, Error, Warn, Info)
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,        // Enable color
		},
	)

	db, err := gorm.Open(GormDialector(cnx), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true, // map dialect errors to gorm.ErrDuplicatedKey et al.
	})
	if err != nil {
		log.Printf("Failed connecting to the database: %v", err)
		return nil, err
	}

	err = performDialectSpecific(db, dialect)
	if err != nil {
		log.Printf("Failed performing dialect specific database init: %v", err)
		return nil, err
	}

	err = db.AutoMigrate(&Dongle{}, &AssignmentEvent{}, &DongleEdit{})
	if err != nil {
		log.Printf("Failed performing database automigrate: %v", err)
		return nil, err
	}

	err = dropDeprecatedColumns(db)
	if err != nil {
		log.Printf("Failed removing deprecated columns: %v", err)
		return nil, err
	}

	stor := &dbStore{db: db}

	return stor, nil
}

// dbFromURI
func dbFromURI(uri string) (string, string) {
	parts := strings.Split(uri, "://")
	if len(parts) != 2 {
		return "error", ""
	}
	return parts[0], parts[1]
}

// addParamsDialectSpecific takes a connection string and adds parameters specific to the SQL dialect
func addParamsDialectSpecific(cnx, dialect string) string {
	switch dialect {
	case "sqlite3":
		// do not override parameters already present in the cnx string
		if !strings.Contains(cnx, "?") {
			cnx += "?cache=shared&mode=rwc"
		}
	case "mysql":
		cnx += "?charset=utf8mb4&parseTime=True&loc=Local"
	case "postgres":
		cnx += "?sslmode=disable"
	default:
		log.Printf("Invalid dialect: %s", dialect)
	}
	return cnx
}

// performDialectSpecific
func performDialectSpecific(db *gorm.DB, dialect string) error {
	switch dialect {
	case "sqlite3":
		err := db.Exec("PRAGMA journal_mode = WAL").Error
		if err != nil {
			return err
		}
		err = db.Exec("PRAGMA foreign_keys = ON").Error
		if err != nil {
			return err
		}
	case "mysql":
		// nothing , so far
	case "postgres":
		// nothing , so far
	default:
		return fmt.Errorf("invalid dialect: %s", dialect)
	}
	return nil
}
