package jobs

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseRoute(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantID     string
		wantAction string
		wantOK     bool
	}{
		{"id only", "/api/entries/abc-123", "abc-123", "", true},
		{"id with action", "/api/entries/abc-123/photo", "abc-123", "photo", true},
		{"trailing slash action", "/api/entries/abc-123/photo/", "abc-123", "photo", true},
		{"empty id", "/api/entries/", "", "", false},
		{"wrong prefix", "/api/sessions/abc", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, action, ok := ParseRoute(tt.path, "/api/entries/")
			if ok != tt.wantOK || id != tt.wantID || action != tt.wantAction {
				t.Errorf("ParseRoute(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.path, id, action, ok, tt.wantID, tt.wantAction, tt.wantOK)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	id1 := GenerateID("enrich-")
	id2 := GenerateID("enrich-")
	if !strings.HasPrefix(id1, "enrich-") {
		t.Errorf("GenerateID missing prefix: %s", id1)
	}
	if len(id1) != len("enrich-")+32 {
		t.Errorf("GenerateID length = %d, want %d", len(id1), len("enrich-")+32)
	}
	if id1 == id2 {
		t.Error("GenerateID returned duplicate IDs")
	}
}

func TestCheckOwnership(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/entries/e1?userId=user-1", nil)
	if !CheckOwnership(r, "user-1") {
		t.Error("CheckOwnership should pass for matching userId")
	}
	if CheckOwnership(r, "user-2") {
		t.Error("CheckOwnership should fail for mismatched userId")
	}

	r = httptest.NewRequest("GET", "/api/entries/e1", nil)
	if CheckOwnership(r, "") {
		t.Error("CheckOwnership should fail when userId param is absent")
	}
}
