package objectid

import (
	"errors"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		id       string
		wantUUID string
		wantPath string
		wantErr  bool
	}{
		{"src1::a/b", "src1", "a/b", false},
		{"src1::", "src1", "", false},
		{"src1::a::b", "src1", "a::b", false},
		{"::a", "", "", true},
		{"noseparator", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			uuid, path, err := Split(tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidObjectID) {
					t.Fatalf("Split(%q) error = %v, want ErrInvalidObjectID", tt.id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split(%q) unexpected error: %v", tt.id, err)
			}
			if uuid != tt.wantUUID || path != tt.wantPath {
				t.Errorf("Split(%q) = (%q, %q), want (%q, %q)", tt.id, uuid, path, tt.wantUUID, tt.wantPath)
			}
		})
	}
}

func TestJoinRoundTrip(t *testing.T) {
	id := Join("src1", "music/album")
	if id != "src1::music/album" {
		t.Fatalf("Join() = %q", id)
	}
	if Root("src1") != "src1::" {
		t.Errorf("Root() = %q, want %q", Root("src1"), "src1::")
	}
	uuid, err := UUID(id)
	if err != nil || uuid != "src1" {
		t.Errorf("UUID(%q) = (%q, %v)", id, uuid, err)
	}
}
