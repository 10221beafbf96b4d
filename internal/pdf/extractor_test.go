package pdfutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/IntakeDesk/internal/pdf/pdftest"
)

func TestExtractTextEmpty(t *testing.T) {
	_, err := ExtractText(nil)
	require.ErrorIs(t, err, ErrNoText)
}

func TestExtractTextRejectsNonPDF(t *testing.T) {
	_, err := ExtractFromReader(strings.NewReader("Patient Name: Test Patient\nDOB: 01/01/1990"))
	require.Error(t, err)
}

func TestExtractTextReadsPages(t *testing.T) {
	data := pdftest.Document("Patient Name: Jane Doe", "DOB: 01/02/1990")
	text, err := ExtractText(data)
	require.NoError(t, err)
	require.Contains(t, text, "Patient Name: Jane Doe")
	require.Contains(t, text, "DOB: 01/02/1990")
	require.True(t, HasText(text))

	at, err := ExtractTextAt(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, text, at)
}

func TestHasText(t *testing.T) {
	require.False(t, HasText("   short  \n"))
	require.True(t, HasText("Patient Name: Jane Doe"))
}
