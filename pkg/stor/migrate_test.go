package stor

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TestInitIdempotence runs the schema initialization twice on the same
// database and checks that rows survive.
func TestInitIdempotence(t *testing.T) {

	dongleID := newWorkingDongle(t)

	countBefore, err := St.Dongle().Count()
	if err != nil {
		t.Fatalf("Failed to count dongles: %v", err)
	}

	// a second Init on the same shared in-memory database
	st2, err := Init("sqlite3://file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Second init failed: %v", err)
	}

	countAfter, err := st2.Dongle().Count()
	if err != nil {
		t.Fatalf("Failed to count dongles: %v", err)
	}
	if countAfter != countBefore {
		t.Fatalf("Migration lost rows: %d -> %d", countBefore, countAfter)
	}
	if _, err = st2.Dongle().Get(dongleID); err != nil {
		t.Fatalf("Dongle %s lost by migration: %v", dongleID, err)
	}
}

// TestDropDeprecatedColumns simulates a database created by an old version
// of the tracker, with since-removed dongle columns.
func TestDropDeprecatedColumns(t *testing.T) {

	// a separate named in-memory database, to leave the shared one alone
	dsn := "sqlite3://file:migratetest?mode=memory&cache=shared"
	st, err := Init(dsn)
	if err != nil {
		t.Fatalf("Failed to init the store: %v", err)
	}
	defer st.Close()

	dongleID := "HAL-" + uuid.New().String()
	err = st.Dongle().Create(&Dongle{DongleID: dongleID, Notes: "legacy", DefaultOwner: "Admin", State: STATE_WORKING})
	if err != nil {
		t.Fatalf("Failed to create a dongle: %v", err)
	}

	// recreate the legacy columns
	db := st.(*dbStore).db
	if err = db.Exec("ALTER TABLE dongles ADD COLUMN modules TEXT").Error; err != nil {
		t.Fatalf("Failed to add a legacy column: %v", err)
	}
	if err = db.Exec("ALTER TABLE dongles ADD COLUMN location TEXT").Error; err != nil {
		t.Fatalf("Failed to add a legacy column: %v", err)
	}

	if err = dropDeprecatedColumns(db); err != nil {
		t.Fatalf("Failed to drop deprecated columns: %v", err)
	}

	// the columns are gone, the rows survive
	for _, column := range deprecatedDongleColumns {
		if db.Migrator().HasColumn(&Dongle{}, column) {
			t.Fatalf("Deprecated column %q still present", column)
		}
	}
	dongle, err := st.Dongle().Get(dongleID)
	if err != nil {
		t.Fatalf("Dongle lost by the column drop: %v", err)
	}
	if dongle.Notes != "legacy" {
		t.Fatalf("Dongle attributes lost by the column drop: %+v", dongle)
	}

	// a second pass is a no-op
	if err = dropDeprecatedColumns(db); err != nil {
		t.Fatalf("Second column drop pass failed: %v", err)
	}
}

// TestDropDeprecatedColumnsFreshDB checks the pass degrades to a no-op
// when the base tables are absent.
func TestDropDeprecatedColumnsFreshDB(t *testing.T) {

	db, err := gorm.Open(GormDialector("file:freshtest?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open a fresh database: %v", err)
	}
	if err = dropDeprecatedColumns(db); err != nil {
		t.Fatalf("Column drop on a fresh database failed: %v", err)
	}
}
