package locale

import (
	"testing"
	"time"
)

func TestForPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  string
	}{
		{"+51987654321", "PE"},
		{"+16502530000", "US"},
		{"+972541234567", "PE"},
		{"not a phone", "PE"},
	}
	for _, tt := range tests {
		if got := ForPhone(tt.phone).Code; got != tt.want {
			t.Errorf("ForPhone(%q) = %s, want %s", tt.phone, got, tt.want)
		}
	}
}

func TestFormatAppointmentTime(t *testing.T) {
	lima, err := time.LoadLocation("America/Lima")
	if err != nil {
		t.Skip("tzdata not available")
	}
	ts := time.Date(2026, 5, 12, 15, 30, 0, 0, time.UTC) // 10:30 in Lima

	if got := FormatAppointmentTime(ts, lima, LangSpanish); got != "martes 12 de mayo, 10:30" {
		t.Errorf("spanish = %q", got)
	}
	if got := FormatAppointmentTime(ts, lima, LangEnglish); got != "Tuesday, May 12 at 10:30" {
		t.Errorf("english = %q", got)
	}
}
