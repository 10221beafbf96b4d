package extraction

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1/15/1990", "1990-01-15", true},
		{"12/31/85", "1985-12-31", true},
		{"3/5/2000", "2000-03-05", true},
		{"10-20-1995", "1995-10-20", true},
		{"4/4/05", "2005-04-04", true},
		{"", "", false},
		{"invalid", "", false},
		{"1/2", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func s(v string) *string { return &v }

func TestExtractPatientInfo(t *testing.T) {
	tests := []struct {
		name string
		text string
		want PatientInfo
	}{
		{
			name: "full name",
			text: "Patient Name: John Doe\nDOB: 01/15/1990",
			want: PatientInfo{FirstName: s("John"), LastName: s("Doe"), DOB: s("1990-01-15")},
		},
		{
			name: "last comma first",
			text: "Name: Doe, John\nDate of Birth: 12/31/1985",
			want: PatientInfo{FirstName: s("John"), LastName: s("Doe"), DOB: s("1985-12-31")},
		},
		{
			name: "separate labels",
			text: "First Name: Alice\nLast Name: Smith\nDOB: 03/20/1992",
			want: PatientInfo{FirstName: s("Alice"), LastName: s("Smith"), DOB: s("1992-03-20")},
		},
		{
			name: "labels do not override full name",
			text: "Patient Name: Mary O'Neil\nFirst Name: Other",
			want: PatientInfo{FirstName: s("Mary"), LastName: s("O'Neil")},
		},
		{
			name: "case insensitive",
			text: "  patient name: ann lee  \n\n dob: 7-4-76",
			want: PatientInfo{FirstName: s("ann"), LastName: s("lee"), DOB: s("1976-07-04")},
		},
		{
			name: "empty",
			text: "",
			want: PatientInfo{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPatientInfo(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPatientInfoMap(t *testing.T) {
	info := PatientInfo{FirstName: s("Jane")}
	require.True(t, PatientInfo{}.Empty())
	require.False(t, info.Empty())
	require.Equal(t, map[string]any{
		"patient_first_name": "Jane",
		"patient_last_name":  nil,
		"dob":                nil,
	}, info.Map())
}
