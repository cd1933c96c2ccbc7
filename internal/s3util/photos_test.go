package s3util

import "testing"

func TestValidStagingKey(t *testing.T) {
	uploadID := "upload-0123456789abcdef0123456789abcdef"
	key := StagingKey("u1", uploadID)
	if key != "staging/u1/"+uploadID+".jpg" {
		t.Fatalf("StagingKey = %q", key)
	}

	tests := []struct {
		name   string
		userID string
		key    string
		want   bool
	}{
		{"matching owner", "u1", key, true},
		{"wrong owner", "u2", key, false},
		{"photos prefix", "u1", "photos/u1/" + uploadID + ".jpg", false},
		{"short upload id", "u1", "staging/u1/upload-abc.jpg", false},
		{"path traversal", "u1", "staging/u1/../u2/" + uploadID + ".jpg", false},
		{"missing extension", "u1", "staging/u1/" + uploadID, false},
	}
	for _, tt := range tests {
		if got := ValidStagingKey(tt.userID, tt.key); got != tt.want {
			t.Errorf("%s: ValidStagingKey(%q, %q) = %v, want %v", tt.name, tt.userID, tt.key, got, tt.want)
		}
	}
}

func TestPhotoKey(t *testing.T) {
	tests := []struct {
		userID  string
		entryID string
		want    string
	}{
		{"u1", "entry-abc", "photos/u1/entry-abc.jpg"},
		{"user-42", "e", "photos/user-42/e.jpg"},
	}
	for _, tt := range tests {
		if got := PhotoKey(tt.userID, tt.entryID); got != tt.want {
			t.Errorf("PhotoKey(%q, %q) = %q, want %q", tt.userID, tt.entryID, got, tt.want)
		}
	}
}
