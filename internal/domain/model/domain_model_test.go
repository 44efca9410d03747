//go:build !integration

package model

import (
	"errors"
	"strings"
	"testing"
	"time"

	"whatsapp-image-bot/internal/domain"
)

// --- User Model Tests ---

func TestNewUser(t *testing.T) {
	t.Run("should create a new user successfully", func(t *testing.T) {
		startTime := time.Now()
		user, err := NewUser("whatsapp:+14155551234", 3)

		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if user == nil {
			t.Fatal("expected user to be non-nil, but got nil")
		}
		if user.Address != "+14155551234" {
			t.Errorf("expected channel prefix stripped, got %q", user.Address)
		}
		if user.CreditsRemaining != 3 {
			t.Errorf("expected 3 starting credits, got %d", user.CreditsRemaining)
		}
		if time.Since(startTime) > time.Second {
			t.Error("user.CreatedAt timestamp is too far from current time")
		}
	})

	t.Run("should fail with empty address", func(t *testing.T) {
		user, err := NewUser("  ", 3)
		if err == nil {
			t.Fatal("expected an error for empty address, but got nil")
		}
		if user != nil {
			t.Error("expected user to be nil on error, but it was not")
		}
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected error to be ErrInvalidArgument, but got %T", err)
		}
	})

	t.Run("should fail with negative starting credits", func(t *testing.T) {
		_, err := NewUser("+14155551234", -1)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"whatsapp:+14155551234", "+14155551234"},
		{"+14155551234", "+14155551234"},
		{"  whatsapp:+49123456789  ", "+49123456789"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeAddress(c.in); got != c.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// --- Event Classification Tests ---

func TestClassify(t *testing.T) {
	t.Run("attached image wins over any caption", func(t *testing.T) {
		ev := InboundEvent{Body: "balance", MediaURL: "https://media.example/abc"}
		got := ev.Classify()
		if got.Kind != KindImage {
			t.Fatalf("expected KindImage, got %v", got.Kind)
		}
		if got.ImageURL != "https://media.example/abc" {
			t.Errorf("expected media URL carried through, got %q", got.ImageURL)
		}
	})

	t.Run("recognizes commands case-insensitively", func(t *testing.T) {
		cases := map[string]CommandKind{
			"balance":  CommandBalance,
			"Balance":  CommandBalance,
			"BUY":      CommandBuy,
			"  help  ": CommandHelp,
		}
		for body, want := range cases {
			got := InboundEvent{Body: body}.Classify()
			if got.Kind != KindCommand {
				t.Errorf("Classify(%q): expected KindCommand, got %v", body, got.Kind)
				continue
			}
			if got.Command != want {
				t.Errorf("Classify(%q): expected command %q, got %q", body, want, got.Command)
			}
		}
	})

	t.Run("treats other text as an instruction", func(t *testing.T) {
		got := InboundEvent{Body: "  the red car  "}.Classify()
		if got.Kind != KindInstruction {
			t.Fatalf("expected KindInstruction, got %v", got.Kind)
		}
		if got.Instruction != "the red car" {
			t.Errorf("expected trimmed instruction, got %q", got.Instruction)
		}
	})

	t.Run("empty event is unknown", func(t *testing.T) {
		got := InboundEvent{Body: "   "}.Classify()
		if got.Kind != KindUnknown {
			t.Errorf("expected KindUnknown, got %v", got.Kind)
		}
	})
}

func TestIsBackground(t *testing.T) {
	for _, in := range []string{"background", "Background", " BACKGROUND "} {
		if !IsBackground(in) {
			t.Errorf("IsBackground(%q) = false, want true", in)
		}
	}
	for _, in := range []string{"the background tree", "back ground", ""} {
		if IsBackground(in) {
			t.Errorf("IsBackground(%q) = true, want false", in)
		}
	}
}

// --- Pending Image Tests ---

func TestPendingImageExpired(t *testing.T) {
	now := time.Now()
	window := 15 * time.Minute

	fresh := &PendingImage{ReceivedAt: now.Add(-time.Minute)}
	if fresh.Expired(now, window) {
		t.Error("expected a one minute old entry to be fresh")
	}

	stale := &PendingImage{ReceivedAt: now.Add(-16 * time.Minute)}
	if !stale.Expired(now, window) {
		t.Error("expected a sixteen minute old entry to be expired")
	}

	var nilPending *PendingImage
	if !nilPending.Expired(now, window) {
		t.Error("expected nil pending image to be expired")
	}
}

// --- Job Tests ---

func TestJobObjectKey(t *testing.T) {
	job := NewJob("+14155551234", "https://media.example/src", "the car")
	if job.ID == "" {
		t.Fatal("expected a generated job ID")
	}

	key := job.ObjectKey("processed", ".png")
	if !strings.HasPrefix(key, "processed/") {
		t.Errorf("expected processed/ prefix, got %q", key)
	}
	if !strings.HasSuffix(key, ".png") {
		t.Errorf("expected .png suffix, got %q", key)
	}
	if !strings.Contains(key, job.ID) {
		t.Errorf("expected key to contain the job ID, got %q", key)
	}

	if got := job.ObjectKey("original", ""); !strings.HasSuffix(got, ".jpg") {
		t.Errorf("expected empty extension to default to .jpg, got %q", got)
	}

	other := NewJob("+14155551234", "https://media.example/src", "the car")
	if other.ID == job.ID {
		t.Error("expected distinct IDs for distinct jobs")
	}
}
