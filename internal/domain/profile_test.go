package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeProfileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"  Ada  ", "Ada", false},
		{"Li", "Li", false},
		{"é", "", true},
		{"   ", "", true},
		{"Zoë", "Zoë", false},
	}
	for _, tt := range tests {
		got, err := NormalizeProfileName(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrProfileNameTooShort) {
				t.Errorf("NormalizeProfileName(%q) err = %v, want ErrProfileNameTooShort", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("NormalizeProfileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestProfileMerge(t *testing.T) {
	at := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	base := Profile{UserID: "u1", Name: "Ada", Email: "ada@example.com", PhotoURL: "a.png", UpdatedAt: at}

	got := base.Merge(Profile{Name: "Ada L."})
	want := Profile{UserID: "u1", Name: "Ada L.", Email: "ada@example.com", PhotoURL: "a.png", UpdatedAt: at}
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}

	later := at.Add(time.Hour)
	got = base.Merge(Profile{PhotoURL: "b.png", UpdatedAt: later})
	if got.PhotoURL != "b.png" || !got.UpdatedAt.Equal(later) || got.Name != "Ada" {
		t.Errorf("Merge() = %+v", got)
	}
}

func TestNewDay(t *testing.T) {
	d, err := NewDay("u1", "2026-10-17")
	if err != nil {
		t.Fatalf("NewDay() error = %v", err)
	}
	if !d.Authenticated() {
		t.Error("day with a user should be authenticated")
	}

	anon, err := NewDay("", "2026-10-17")
	if err != nil || anon.Authenticated() {
		t.Errorf("NewDay(\"\") = %+v, %v", anon, err)
	}

	if _, err := NewDay("u1", "2026-02-29"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("2026-02-29 is not a leap day, got err = %v", err)
	}
	if _, err := NewDay("u1", "2028-02-29"); err != nil {
		t.Errorf("2028-02-29 is a leap day, got err = %v", err)
	}
}

func TestActivityInput(t *testing.T) {
	a := Activity{ID: "x", Name: "Read", Category: CategoryStudy, Duration: 30}
	if got := a.Input(); got != (ActivityInput{Name: "Read", Category: CategoryStudy, Duration: 30}) {
		t.Errorf("Input() = %+v", got)
	}
}
