// Package view turns controller state into plain-text panels for the
// terminal shell.
package view

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dharsanguruparan/IntakeDesk/internal/ingest"
	"github.com/dharsanguruparan/IntakeDesk/internal/model"
	"github.com/dharsanguruparan/IntakeDesk/internal/orders"
)

const (
	// EmptyOrdersText is the single row shown when the list is empty.
	EmptyOrdersText = "No orders yet"
	// ExtractedHeading titles the extraction result dump.
	ExtractedHeading = "Extracted"

	missingDOB = "—"
)

// OrderRow is one rendered order.
type OrderRow struct {
	ID     int64
	Title  string
	Detail string
}

// OrdersPanel is the rendered order list plus form affordances.
type OrdersPanel struct {
	Rows         []OrderRow
	EmptyState   string
	CreateLabel  string
	CreateActive bool
	Error        string
}

// OrderTitle is the primary line, "{first} {last}".
func OrderTitle(o model.Order) string {
	return o.FullName()
}

// OrderDetail is the secondary line, "DOB: {dob or —} • Status: {status}".
func OrderDetail(o model.Order) string {
	dob := missingDOB
	if o.DOB != nil && *o.DOB != "" {
		dob = *o.DOB
	}
	return fmt.Sprintf("DOB: %s • Status: %s", dob, o.Status)
}

// Orders builds the order panel. An empty list yields exactly one
// empty-state row and no data rows.
func Orders(st orders.State) OrdersPanel {
	p := OrdersPanel{
		CreateLabel:  "Create Order",
		CreateActive: !st.Submitting,
	}
	if st.Submitting {
		p.CreateLabel = "Saving..."
	}
	if st.Err != nil {
		p.Error = st.Err.Error()
	}
	if len(st.Orders) == 0 {
		p.EmptyState = EmptyOrdersText
		return p
	}
	p.Rows = make([]OrderRow, 0, len(st.Orders))
	for _, o := range st.Orders {
		p.Rows = append(p.Rows, OrderRow{ID: o.ID, Title: OrderTitle(o), Detail: OrderDetail(o)})
	}
	return p
}

// String renders the panel as text.
func (p OrdersPanel) String() string {
	var b strings.Builder
	b.WriteString("Orders\n")
	fmt.Fprintf(&b, "[%s]\n", p.CreateLabel)
	if p.Error != "" {
		fmt.Fprintf(&b, "! %s\n", p.Error)
	}
	if p.EmptyState != "" {
		fmt.Fprintf(&b, "  %s\n", p.EmptyState)
	}
	for _, r := range p.Rows {
		fmt.Fprintf(&b, "  #%d %s\n", r.ID, r.Title)
		fmt.Fprintf(&b, "     %s\n", r.Detail)
	}
	return b.String()
}

// ExtractionPanel is the rendered upload form and latest result.
type ExtractionPanel struct {
	FileName     string
	UploadLabel  string
	UploadActive bool
	Error        string
	// Result is empty when there is nothing to show.
	Result string
}

// Extraction builds the upload panel.
func Extraction(st ingest.State) ExtractionPanel {
	p := ExtractionPanel{
		UploadLabel:  "Upload PDF",
		UploadActive: st.File != nil && !st.Uploading,
	}
	if st.File != nil {
		p.FileName = st.File.Name
	}
	if st.Uploading {
		p.UploadLabel = "Uploading..."
	}
	if st.Err != nil {
		p.Error = st.Err.Error()
	}
	if st.Result != nil {
		out, err := FormatResult(st.Result)
		if err != nil {
			out = fmt.Sprintf("%v", st.Result)
		}
		p.Result = out
	}
	return p
}

// FormatResult dumps a result as two-space indented JSON.
func FormatResult(result map[string]any) (string, error) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format result: %w", err)
	}
	return string(out), nil
}

// String renders the panel as text.
func (p ExtractionPanel) String() string {
	var b strings.Builder
	b.WriteString("Document\n")
	name := p.FileName
	if name == "" {
		name = "(no file chosen)"
	}
	fmt.Fprintf(&b, "File: %s\n", name)
	fmt.Fprintf(&b, "[%s]\n", p.UploadLabel)
	if p.Error != "" {
		fmt.Fprintf(&b, "! %s\n", p.Error)
	}
	if p.Result != "" {
		b.WriteString(ExtractedHeading + "\n")
		b.WriteString(p.Result)
		b.WriteString("\n")
	}
	return b.String()
}

// SideBySide lays out two text blocks in columns, the left one padded to
// width runes.
func SideBySide(left, right string, width int) string {
	l := strings.Split(strings.TrimRight(left, "\n"), "\n")
	r := strings.Split(strings.TrimRight(right, "\n"), "\n")
	n := len(l)
	if len(r) > n {
		n = len(r)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		var ls, rs string
		if i < len(l) {
			ls = l[i]
		}
		if i < len(r) {
			rs = r[i]
		}
		if pad := width - utf8.RuneCountInString(ls); pad > 0 {
			ls += strings.Repeat(" ", pad)
		}
		line := ls + " | " + rs
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
	return b.String()
}
