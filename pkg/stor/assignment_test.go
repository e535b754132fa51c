package stor

import (
	"testing"

	"github.com/google/uuid"
)

// newWorkingDongle creates a fresh working dongle for a test
func newWorkingDongle(t *testing.T) string {
	t.Helper()
	d := Dongle{
		DongleID:      "HAL-" + uuid.New().String(),
		HalconVersion: "23.11",
		DefaultOwner:  "Admin",
		State:         STATE_WORKING,
	}
	if err := St.Dongle().Create(&d); err != nil {
		t.Fatalf("Failed to create a dongle: %v", err)
	}
	return d.DongleID
}

// TestCheckoutLifecycle covers the checkout / checkin sequence and the
// derived active assignment.
func TestCheckoutLifecycle(t *testing.T) {

	dongleID := newWorkingDongle(t)

	// the fresh dongle is available
	available, err := St.Dongle().ListAvailable()
	if err != nil {
		t.Fatalf("Failed to list available dongles: %v", err)
	}
	if !containsString(available, dongleID) {
		t.Fatalf("Fresh dongle %s not available", dongleID)
	}

	// check it out
	err = St.Assignment().CheckOut(dongleID, "alice", "for testing")
	if err != nil {
		t.Fatalf("Failed to check out: %v", err)
	}

	// it is now held by alice
	active, err := St.Assignment().Active()
	if err != nil {
		t.Fatalf("Failed to get active assignments: %v", err)
	}
	a, ok := active[dongleID]
	if !ok {
		t.Fatalf("Dongle %s has no active assignment after checkout", dongleID)
	}
	if a.AssignedTo != "alice" {
		t.Fatalf("Dongle %s assigned to %q, expected alice", dongleID, a.AssignedTo)
	}
	if a.Date.IsZero() {
		t.Fatal("Active assignment has no date")
	}

	// it appears in the checked out list
	checkedOut, err := St.Assignment().CheckedOut()
	if err != nil {
		t.Fatalf("Failed to list checked out dongles: %v", err)
	}
	found := false
	for _, c := range checkedOut {
		if c.DongleID == dongleID {
			found = true
			if c.AssignedTo != "alice" {
				t.Fatalf("Checked out entry assigned to %q, expected alice", c.AssignedTo)
			}
		}
	}
	if !found {
		t.Fatalf("Dongle %s missing from the checked out list", dongleID)
	}

	// the checked out list is ordered newest first
	for i := 1; i < len(checkedOut); i++ {
		if checkedOut[i-1].Date.Before(checkedOut[i].Date) {
			t.Fatal("Checked out list is not ordered newest first")
		}
	}

	// and it is no longer available
	available, err = St.Dongle().ListAvailable()
	if err != nil {
		t.Fatalf("Failed to list available dongles: %v", err)
	}
	if containsString(available, dongleID) {
		t.Fatalf("Checked out dongle %s still available", dongleID)
	}

	// check it back in
	err = St.Assignment().CheckIn(dongleID, "")
	if err != nil {
		t.Fatalf("Failed to check in: %v", err)
	}

	// no active assignment anymore, the dongle is available again
	active, err = St.Assignment().Active()
	if err != nil {
		t.Fatalf("Failed to get active assignments: %v", err)
	}
	if _, ok := active[dongleID]; ok {
		t.Fatalf("Dongle %s still has an active assignment after checkin", dongleID)
	}
	available, err = St.Dongle().ListAvailable()
	if err != nil {
		t.Fatalf("Failed to list available dongles: %v", err)
	}
	if !containsString(available, dongleID) {
		t.Fatalf("Checked in dongle %s not available again", dongleID)
	}
}

// TestDoubleCheckout verifies that the later of two consecutive checkout
// events wins as the active assignment.
func TestDoubleCheckout(t *testing.T) {

	dongleID := newWorkingDongle(t)

	if err := St.Assignment().CheckOut(dongleID, "alice", ""); err != nil {
		t.Fatalf("Failed to check out: %v", err)
	}
	if err := St.Assignment().CheckOut(dongleID, "bob", ""); err != nil {
		t.Fatalf("Failed to check out: %v", err)
	}

	active, err := St.Assignment().Active()
	if err != nil {
		t.Fatalf("Failed to get active assignments: %v", err)
	}
	a, ok := active[dongleID]
	if !ok {
		t.Fatalf("Dongle %s has no active assignment", dongleID)
	}
	// both events carry the same second-granularity timestamp;
	// the sequence number disambiguates
	if a.AssignedTo != "bob" {
		t.Fatalf("Dongle %s assigned to %q, expected bob", dongleID, a.AssignedTo)
	}
}

func TestAssignmentHistory(t *testing.T) {

	dongleID := newWorkingDongle(t)

	if err := St.Assignment().CheckOut(dongleID, "carol", "history test"); err != nil {
		t.Fatalf("Failed to check out: %v", err)
	}
	if err := St.Assignment().CheckIn(dongleID, "returned"); err != nil {
		t.Fatalf("Failed to check in: %v", err)
	}

	// filter by dongle
	events, err := St.Assignment().History(AssignmentFilter{DongleID: dongleID}, 100)
	if err != nil {
		t.Fatalf("Failed to get assignment history: %v", err)
	}
	if len(*events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(*events))
	}
	// newest first: the checkin precedes the checkout in the result
	if (*events)[0].Action != ACTION_CHECK_IN || (*events)[1].Action != ACTION_CHECK_OUT {
		t.Fatal("History is not ordered newest first")
	}
	// the checkin event carries no assignee
	if (*events)[0].AssignedTo != "" {
		t.Fatalf("Checkin event carries assignee %q", (*events)[0].AssignedTo)
	}

	// filter by action
	events, err = St.Assignment().History(AssignmentFilter{DongleID: dongleID, Action: ACTION_CHECK_OUT}, 100)
	if err != nil {
		t.Fatalf("Failed to get assignment history: %v", err)
	}
	if len(*events) != 1 || (*events)[0].Action != ACTION_CHECK_OUT {
		t.Fatal("Action filter failed")
	}

	// filter by assignee
	events, err = St.Assignment().History(AssignmentFilter{AssignedTo: "carol"}, 100)
	if err != nil {
		t.Fatalf("Failed to get assignment history: %v", err)
	}
	for _, e := range *events {
		if e.AssignedTo != "carol" {
			t.Fatalf("Assignee filter returned event for %q", e.AssignedTo)
		}
	}

	// the limit is honored
	events, err = St.Assignment().History(AssignmentFilter{}, 1)
	if err != nil {
		t.Fatalf("Failed to get assignment history: %v", err)
	}
	if len(*events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(*events))
	}
}

func TestFilterOptions(t *testing.T) {

	dongleID := newWorkingDongle(t)

	if err := St.Assignment().CheckOut(dongleID, "dave", ""); err != nil {
		t.Fatalf("Failed to check out: %v", err)
	}
	if err := St.Assignment().CheckIn(dongleID, ""); err != nil {
		t.Fatalf("Failed to check in: %v", err)
	}

	dongleIDs, err := St.Assignment().DistinctDongleIDs()
	if err != nil {
		t.Fatalf("Failed to get distinct dongle ids: %v", err)
	}
	if !containsString(dongleIDs, dongleID) {
		t.Fatalf("Dongle %s missing from distinct ids", dongleID)
	}
	for i := 1; i < len(dongleIDs); i++ {
		if dongleIDs[i-1] > dongleIDs[i] {
			t.Fatal("Distinct dongle ids are not ordered")
		}
	}

	assignees, err := St.Assignment().DistinctAssignees()
	if err != nil {
		t.Fatalf("Failed to get distinct assignees: %v", err)
	}
	if !containsString(assignees, "dave") {
		t.Fatal("Assignee dave missing from distinct assignees")
	}
	// checkin events have empty assignees, which are excluded
	if containsString(assignees, "") {
		t.Fatal("Empty assignee listed in distinct assignees")
	}
}
