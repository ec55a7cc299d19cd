package forms

import (
	"errors"
	"strings"
	"testing"
)

func TestWatchlistRequiresNameAndDescription(t *testing.T) {
	v := MustNew()

	tests := []struct {
		name, description string
	}{
		{"", ""},
		{"Infra", ""},
		{"", "Servidores"},
		{"   ", "Servidores"},
	}
	for _, tt := range tests {
		err := v.Watchlist(tt.name, tt.description)
		var fe *Error
		if !errors.As(err, &fe) {
			t.Fatalf("Watchlist(%q, %q) = %v, want *Error", tt.name, tt.description, err)
		}
		if fe.Message != MsgWatchlistRequired {
			t.Errorf("Watchlist(%q, %q) message = %q", tt.name, tt.description, fe.Message)
		}
	}
}

func TestWatchlistLengthLimits(t *testing.T) {
	v := MustNew()

	err := v.Watchlist(strings.Repeat("n", 101), "ok")
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.Message != "El nombre no puede exceder 100 caracteres" {
		t.Fatalf("unexpected message %q", fe.Message)
	}

	err = v.Watchlist(strings.Repeat("n", 101), strings.Repeat("d", 501))
	if !errors.As(err, &fe) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if fe.Message != "El nombre no puede exceder 100 caracteres" {
		t.Fatalf("name error should come first, got %q", fe.Message)
	}
	if fe.Fields["description"] != "La descripción no puede exceder 500 caracteres" {
		t.Fatalf("unexpected description field error: %v", fe.Fields)
	}

	// Limits count characters, not bytes.
	if err := v.Watchlist(strings.Repeat("ñ", 100), "válida"); err != nil {
		t.Fatalf("100 multibyte characters should be accepted: %v", err)
	}
}

func TestTerm(t *testing.T) {
	v := MustNew()

	if err := v.Term("ransomware"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Term(" "); err == nil || err.Error() != MsgTermRequired {
		t.Fatalf("blank term: got %v", err)
	}
	if err := v.Term(strings.Repeat("t", 51)); err == nil || err.Error() != "El término no puede exceder 50 caracteres" {
		t.Fatalf("long term: got %v", err)
	}
}

func TestEvent(t *testing.T) {
	v := MustNew()

	if err := v.Event("Pico de CPU", "CPU al 99%", "HIGH"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Event("Pico de CPU", "", "HIGH"); err == nil || err.Error() != MsgEventRequired {
		t.Fatalf("missing description: got %v", err)
	}
	err := v.Event("Pico de CPU", "CPU al 99%", "SEVERE")
	if err == nil || err.Error() != "La severidad debe ser LOW, MEDIUM, HIGH o CRITICAL" {
		t.Fatalf("bad severity: got %v", err)
	}
}

func TestIDs(t *testing.T) {
	if err := IDs("wl-1", "term-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := IDs("wl-1", ""); err == nil || err.Error() != MsgIDRequired {
		t.Fatalf("blank id: got %v", err)
	}
}
