package utils

import "testing"

func TestDeriveCourseCode(t *testing.T) {
	tests := []struct {
		name    string
		faculty string
		subject string
		number  string
		credits string
		want    string
	}{
		{"Plain", "LE", "EECS", "1011", "3.00", "LEEECS10113.00"},
		{"Lowercase input", "le", "eecs", "1011", "3.00", "LEEECS10113.00"},
		{"Whitespace trimmed", " LE ", " EECS", "1011 ", " 3.00 ", "LEEECS10113.00"},
		{"Mixed case", "Ap", "Econ", "1000a", "6.00", "APECON1000A6.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveCourseCode(tt.faculty, tt.subject, tt.number, tt.credits)
			if got != tt.want {
				t.Errorf("DeriveCourseCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"Valid", "student@my.yorku.ca", "student@my.yorku.ca", nil},
		{"Uppercase normalized", "Student@MY.yorku.CA", "student@my.yorku.ca", nil},
		{"Surrounding whitespace", "  student@my.yorku.ca ", "student@my.yorku.ca", nil},
		{"Empty", "", "", ErrEmptyField},
		{"No at sign", "student.my.yorku.ca", "", ErrInvalidEmail},
		{"Spaces inside", "stu dent@my.yorku.ca", "", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateEmail(tt.input)
			if err != tt.wantErr {
				t.Errorf("ValidateEmail() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateEmail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"Valid https", "https://example.com/doc", nil},
		{"Valid http", "http://example.com", nil},
		{"Empty", "", ErrEmptyURL},
		{"No scheme", "example.com/doc", ErrInvalidURL},
		{"Bad scheme", "ftp://example.com", ErrInvalidScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateURL(tt.url); err != tt.wantErr {
				t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
