package model

import (
	"errors"
	"testing"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Severity
		wantErr bool
	}{
		{name: "critical", input: "CRITICAL", want: SeverityCritical},
		{name: "high", input: "HIGH", want: SeverityHigh},
		{name: "medium", input: "MEDIUM", want: SeverityMedium},
		{name: "low", input: "LOW", want: SeverityLow},
		{name: "info", input: "INFO", want: SeverityInfo},
		{name: "lowercase-rejected", input: "high", wantErr: true},
		{name: "unknown-rejected", input: "DISASTER", wantErr: true},
		{name: "empty-rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeverity(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSeverity) {
					t.Fatalf("ParseSeverity(%q) error = %v, want ErrInvalidSeverity", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSeverity(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseSeverity(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{name: "open", input: "OPEN", want: StatusOpen},
		{name: "in-progress", input: "IN_PROGRESS", want: StatusInProgress},
		{name: "resolved", input: "RESOLVED", want: StatusResolved},
		{name: "closed", input: "CLOSED", want: StatusClosed},
		{name: "bogus-rejected", input: "BOGUS", wantErr: true},
		{name: "lowercase-rejected", input: "open", wantErr: true},
		{name: "empty-rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidStatus) {
					t.Fatalf("ParseStatus(%q) error = %v, want ErrInvalidStatus", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatus(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("ParseStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestListIncidentsQueryNormalize(t *testing.T) {
	q := ListIncidentsQuery{Page: -3, Size: 0}.Normalize()
	if q.Page != 0 {
		t.Errorf("Page = %d, want 0", q.Page)
	}
	if q.Size != DefaultPageSize {
		t.Errorf("Size = %d, want %d", q.Size, DefaultPageSize)
	}

	q = ListIncidentsQuery{Page: 2, Size: 500}.Normalize()
	if q.Size != MaxPageSize {
		t.Errorf("Size = %d, want %d", q.Size, MaxPageSize)
	}
	if q.Page != 2 {
		t.Errorf("Page = %d, want 2", q.Page)
	}

	// 극단적인 page 값은 상한으로 잘라서 offset이 int를 넘지 않게 함
	q = ListIncidentsQuery{Page: int(^uint(0) >> 1), Size: MaxPageSize}.Normalize()
	if q.Page != MaxPage {
		t.Errorf("Page = %d, want %d", q.Page, MaxPage)
	}
	if offset := q.Page * q.Size; offset < 0 {
		t.Errorf("offset = %d, must not be negative", offset)
	}
}
