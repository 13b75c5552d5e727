package validate

import (
	"errors"
	"testing"
)

func TestPhoneNormalization(t *testing.T) {
	// All accepted Turkish forms must canonicalize identically.
	inputs := []string{"05551234567", "+905551234567", "905551234567", "5551234567", "0555 123 45 67"}
	for _, in := range inputs {
		got, err := Phone(in)
		if err != nil {
			t.Errorf("Phone(%q) unexpected error: %v", in, err)
			continue
		}
		if got != "+905551234567" {
			t.Errorf("Phone(%q) = %q, want +905551234567", in, got)
		}
	}
}

func TestPhoneForeignCountryCode(t *testing.T) {
	got, err := Phone("+49 151 23456789")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "+4915123456789" {
		t.Errorf("Phone foreign = %q, want +4915123456789", got)
	}
}

func TestPhoneRejections(t *testing.T) {
	cases := []struct {
		input string
		kind  ErrorKind
	}{
		{"", KindEmpty},
		{"abc", KindEmpty},
		{"12345", KindFormat},
		{"12345678901234567890", KindFormat},
	}
	for _, tc := range cases {
		_, err := Phone(tc.input)
		var fe *FieldError
		if !errors.As(err, &fe) {
			t.Errorf("Phone(%q): expected FieldError, got %v", tc.input, err)
			continue
		}
		if fe.Kind != tc.kind {
			t.Errorf("Phone(%q): kind = %q, want %q", tc.input, fe.Kind, tc.kind)
		}
	}
}

func TestName(t *testing.T) {
	cases := []struct {
		input   string
		want    string
		kind    ErrorKind
		wantErr bool
	}{
		{"Ayşe Yılmaz", "Ayşe Yılmaz", "", false},
		{"  Çağla   Şen ", "Çağla Şen", "", false},
		{"a", "", KindTooShort, true},
		{"", "", KindEmpty, true},
		{"Ahmet123", "", KindPattern, true},
		{"çok uzun bir isim çok uzun bir isim çok uzun bir isim", "", KindTooLong, true},
	}
	for _, tc := range cases {
		got, err := Name(tc.input)
		if tc.wantErr {
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Kind != tc.kind {
				t.Errorf("Name(%q): expected kind %q, got %v", tc.input, tc.kind, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Name(%q) unexpected error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("Name(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestCityLength(t *testing.T) {
	if _, err := City("bu gerçekten çok uzun bir şehir adı"); err == nil {
		t.Error("expected too_long for 30+ rune city")
	}
	got, err := City("İstanbul")
	if err != nil || got != "İstanbul" {
		t.Errorf("City(İstanbul) = %q, %v", got, err)
	}
}

func TestEmail(t *testing.T) {
	got, err := Email(" Ornek@Email.com ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ornek@email.com" {
		t.Errorf("Email = %q, want lowercased trimmed form", got)
	}

	for _, bad := range []string{"", "e-posta", "a@b", "a b@c.com", "@domain.com"} {
		if _, err := Email(bad); err == nil {
			t.Errorf("Email(%q): expected error", bad)
		}
	}
}

func TestFieldDispatch(t *testing.T) {
	got, err := Field("phone", "0555 123 45 67")
	if err != nil || got != "+905551234567" {
		t.Errorf("Field(phone) = %q, %v", got, err)
	}
	// Unknown fields pass through cleaned.
	got, err = Field("favorite_color", "  koyu   mavi ")
	if err != nil || got != "koyu mavi" {
		t.Errorf("Field(unknown) = %q, %v", got, err)
	}
}
