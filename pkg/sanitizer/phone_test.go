package sanitizer

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "valid E.164 format",
			input: "+51987654321",
			want:  "+51987654321",
		},
		{
			name:  "with spaces",
			input: "+51 987 654 321",
			want:  "+51987654321",
		},
		{
			name:  "peruvian national number",
			input: "987654321",
			want:  "+51987654321",
		},
		{
			name:  "with dashes",
			input: "987-654-321",
			want:  "+51987654321",
		},
		{
			name:  "international US number",
			input: "+1 (650) 253-0000",
			want:  "+16502530000",
		},
		{
			name:  "leading and trailing spaces",
			input: "  +51987654321  ",
			want:  "+51987654321",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   ",
			want:  "",
		},
		{
			name:  "garbage",
			input: "call me",
			want:  "",
		},
		{
			name:  "too short",
			input: "+5112",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.input)
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	once := NormalizePhone("987 654 321")
	if twice := NormalizePhone(once); twice != once {
		t.Errorf("not idempotent: %q then %q", once, twice)
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("+51987654321"); got != "+51******321" {
		t.Errorf("MaskPhone = %q", got)
	}
	if got := MaskPhone("+51"); got != "***" {
		t.Errorf("MaskPhone short = %q", got)
	}
}
