package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCSV(t *testing.T) {
	out, err := Render(FormatCSV, Dataset{
		Headers: []string{"student", "email", "progress"},
		Rows: []map[string]string{
			{"student": "Ann Lee", "email": "ann@example.com", "progress": "66.67"},
			{"student": "Bo, Jr", "email": "bo@example.com"},
		},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "student,email,progress\nAnn Lee,ann@example.com,66.67\n\"Bo, Jr\",bo@example.com,\n", string(out))
}

func TestRenderPDF(t *testing.T) {
	out, err := Render(FormatPDF, Dataset{
		Headers: []string{"course", "students"},
		Rows:    []map[string]string{{"course": "Go 101", "students": "2"}},
	}, "Instructor dashboard")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRejects(t *testing.T) {
	_, err := Render(FormatCSV, Dataset{}, "")
	assert.Error(t, err)
	_, err = Render("xlsx", Dataset{Headers: []string{"a"}}, "")
	assert.Error(t, err)
}

func TestRenderCertificate(t *testing.T) {
	out, err := RenderCertificate(Certificate{
		StudentName:    "Ann Lee",
		CourseName:     "Go 101",
		InstructorName: "Ian Structor",
		IssuedAt:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Serial:         "p-1",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = RenderCertificate(Certificate{CourseName: "Go 101"})
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType(FormatPDF))
	assert.Equal(t, "text/csv", ContentType(FormatCSV))
}
