// Package extraction pulls patient identity fields out of plain document
// text.
package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PatientInfo holds the fields found in a document. Missing fields are nil
// and encode as JSON null.
type PatientInfo struct {
	FirstName *string `json:"patient_first_name"`
	LastName  *string `json:"patient_last_name"`
	DOB       *string `json:"dob"`
}

// Empty reports whether nothing was found.
func (p PatientInfo) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.DOB == nil
}

// Map converts the info into the generic form returned to clients.
func (p PatientInfo) Map() map[string]any {
	out := make(map[string]any, 3)
	put := func(key string, v *string) {
		if v == nil {
			out[key] = nil
			return
		}
		out[key] = *v
	}
	put("patient_first_name", p.FirstName)
	put("patient_last_name", p.LastName)
	put("dob", p.DOB)
	return out
}

const word = `([A-Za-z][A-Za-z\-']*)`

var (
	fullNameRe  = regexp.MustCompile(`(?i)\b(?:Patient Name|Name)\b\s*:\s*` + word + `\s+` + word)
	commaNameRe = regexp.MustCompile(`(?i)\b(?:Patient Name|Name)\b\s*:\s*` + word + `\s*,\s*` + word)
	firstNameRe = regexp.MustCompile(`(?i)\b(?:First Name|Given Name|First)\b\s*:\s*` + word)
	lastNameRe  = regexp.MustCompile(`(?i)\b(?:Last Name|Family Name|Surname|Last)\b\s*:\s*` + word)
	dobRe       = regexp.MustCompile(`(?i)\b(?:DOB|Date of Birth)\b\s*:\s*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`)
)

// ExtractPatientInfo scans text line by line. "Name: First Last" and
// "Name: Last, First" always win; the separate first/last labels only fill
// fields that are still empty. The last DOB line found is kept.
func ExtractPatientInfo(text string) PatientInfo {
	var info PatientInfo
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := fullNameRe.FindStringSubmatch(line); m != nil {
			info.FirstName, info.LastName = ptr(m[1]), ptr(m[2])
		}
		if m := commaNameRe.FindStringSubmatch(line); m != nil {
			info.LastName, info.FirstName = ptr(m[1]), ptr(m[2])
		}
		if m := firstNameRe.FindStringSubmatch(line); m != nil && info.FirstName == nil {
			info.FirstName = ptr(m[1])
		}
		if m := lastNameRe.FindStringSubmatch(line); m != nil && info.LastName == nil {
			info.LastName = ptr(m[1])
		}
		if m := dobRe.FindStringSubmatch(line); m != nil {
			if dob, ok := NormalizeDate(m[1]); ok {
				info.DOB = &dob
			}
		}
	}
	return info
}

// NormalizeDate turns M/D/Y or M-D-Y into YYYY-MM-DD. Two-digit years of 70
// and above are 19xx, the rest 20xx.
func NormalizeDate(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	parts := strings.Split(strings.ReplaceAll(s, "-", "/"), "/")
	if len(parts) != 3 {
		return "", false
	}
	month, day, year := parts[0], parts[1], parts[2]
	if len(year) == 2 {
		n, err := strconv.Atoi(year)
		if err != nil {
			return "", false
		}
		if n >= 70 {
			year = "19" + year
		} else {
			year = "20" + year
		}
	}
	return fmt.Sprintf("%s-%s-%s", year, zfill(month, 2), zfill(day, 2)), true
}

func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func ptr(s string) *string { return &s }
