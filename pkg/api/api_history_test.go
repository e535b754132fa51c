package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/edrlab/dongle-tracker/pkg/stor"
	"github.com/edrlab/dongle-tracker/pkg/track"
)

func TestDongleEditHistory(t *testing.T) {

	dongleID := newDongleRequest(t)

	payload := DongleUpdateRequest{
		Notes:        "fan replaced",
		DefaultOwner: stor.DEFAULT_OWNER,
		State:        stor.STATE_WORKING,
		ChangedBy:    "erin",
	}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("PUT", "/dongles/"+dongleID, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	response := executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	req, _ = http.NewRequest("GET", "/dongles/"+dongleID+"/edits", nil)
	response = executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	var edits []stor.DongleEdit
	if err := json.Unmarshal(response.Body.Bytes(), &edits); err != nil {
		t.Fatal(err)
	}
	if len(edits) != 1 {
		t.Fatalf("Expected 1 edit record, got %d", len(edits))
	}
	if edits[0].FieldChanged != stor.FIELD_NOTES {
		t.Errorf("Expected field %s, got %s", stor.FIELD_NOTES, edits[0].FieldChanged)
	}
	if edits[0].ChangedBy != "erin" {
		t.Errorf("Expected editor erin, got %s", edits[0].ChangedBy)
	}
}

func TestAssignmentHistoryHandler(t *testing.T) {

	dongleID := newDongleRequest(t)
	checkOutRequest(t, dongleID, "frank", http.StatusCreated)

	data, _ := json.Marshal(CheckInRequest{})
	req, _ := http.NewRequest("PUT", "/checkin/"+dongleID, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	response := executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	// full history of the dongle, newest first
	req, _ = http.NewRequest("GET", "/history/assignments?dongle="+dongleID, nil)
	response = executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	var events []stor.AssignmentEvent
	if err := json.Unmarshal(response.Body.Bytes(), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Action != stor.ACTION_CHECK_IN || events[1].Action != stor.ACTION_CHECK_OUT {
		t.Errorf("Expected check-in before check-out, got %s then %s", events[0].Action, events[1].Action)
	}

	// filtered by action
	req, _ = http.NewRequest("GET", "/history/assignments?dongle="+dongleID+"&action="+stor.ACTION_CHECK_OUT, nil)
	response = executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	if err := json.Unmarshal(response.Body.Bytes(), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 check-out event, got %d", len(events))
	}
	if events[0].AssignedTo != "frank" {
		t.Errorf("Expected assignee frank, got %s", events[0].AssignedTo)
	}

	// a limit of 1 keeps the newest event only
	req, _ = http.NewRequest("GET", "/history/assignments?dongle="+dongleID+"&limit=1", nil)
	response = executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	if err := json.Unmarshal(response.Body.Bytes(), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Action != stor.ACTION_CHECK_IN {
		t.Errorf("Expected the check-in event alone, got %v", events)
	}
}

func TestEditHistoryHandler(t *testing.T) {

	dongleID := newDongleRequest(t)

	payload := DongleUpdateRequest{
		Notes:        "",
		DefaultOwner: "Calibration Team",
		State:        stor.STATE_WORKING,
		ChangedBy:    "grace",
	}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("PUT", "/dongles/"+dongleID, bytes.NewBuffer(data))
	req.Header.Set("Content-Type", "application/json")
	response := executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	req, _ = http.NewRequest("GET", "/history/edits?dongle="+dongleID+"&editor=grace", nil)
	response = executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	var edits []stor.DongleEdit
	if err := json.Unmarshal(response.Body.Bytes(), &edits); err != nil {
		t.Fatal(err)
	}
	if len(edits) != 1 {
		t.Fatalf("Expected 1 edit record, got %d", len(edits))
	}
	if edits[0].FieldChanged != stor.FIELD_DEFAULT_OWNER {
		t.Errorf("Expected field %s, got %s", stor.FIELD_DEFAULT_OWNER, edits[0].FieldChanged)
	}

	// an editor with no record matches nothing
	req, _ = http.NewRequest("GET", "/history/edits?dongle="+dongleID+"&editor=nobody", nil)
	response = executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	if err := json.Unmarshal(response.Body.Bytes(), &edits); err != nil {
		t.Fatal(err)
	}
	if len(edits) != 0 {
		t.Errorf("Expected no edit record, got %d", len(edits))
	}
}

func TestFilterOptionsHandler(t *testing.T) {

	dongleID := newDongleRequest(t)
	checkOutRequest(t, dongleID, "heidi", http.StatusCreated)

	req, _ := http.NewRequest("GET", "/history/filters", nil)
	response := executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	var options track.FilterOptions
	if err := json.Unmarshal(response.Body.Bytes(), &options); err != nil {
		t.Fatal(err)
	}
	if !containsID(options.DongleIDs, dongleID) {
		t.Errorf("Expected dongle %s in the filter options", dongleID)
	}
	if !containsID(options.Assignees, "heidi") {
		t.Errorf("Expected assignee heidi in the filter options")
	}
}

func TestGetDashboardData(t *testing.T) {

	dongleID := newDongleRequest(t)
	checkOutRequest(t, dongleID, "ivan", http.StatusCreated)

	req, _ := http.NewRequest("GET", "/dashdata/data", nil)
	response := executeRequest(req)
	checkResponseCode(t, http.StatusOK, response)

	var dashboard stor.DashboardData
	if err := json.Unmarshal(response.Body.Bytes(), &dashboard); err != nil {
		t.Fatal(err)
	}
	if dashboard.TotalDongles < 1 {
		t.Errorf("Expected at least one dongle, got %d", dashboard.TotalDongles)
	}
	if dashboard.CheckedOutDongles < 1 {
		t.Errorf("Expected at least one checked out dongle, got %d", dashboard.CheckedOutDongles)
	}
	if dashboard.TotalEvents < 1 {
		t.Errorf("Expected at least one assignment event, got %d", dashboard.TotalEvents)
	}
}
