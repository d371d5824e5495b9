package converters

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/handwriting-ocr/internal/models"
)

func sampleResult() *models.DocumentResult {
	return &models.DocumentResult{
		ID:       "r1",
		Filename: "notes.pdf",
		Pages: []models.PageResult{
			{PageNumber: 1, ExtractedText: "Dear diary", ConfidenceScore: 0.9},
			{PageNumber: 2, ExtractedText: "[unclear]", ConfidenceScore: 0.3},
		},
		FullText: "Dear diary\n\n--- Page Break ---\n\n[unclear]",
		Metadata: models.DocumentMetadata{TotalPages: 2, AverageConfidence: 0.6},
	}
}

func TestJSONConverter(t *testing.T) {
	data, err := NewJSONConverter().Convert(sampleResult())
	require.NoError(t, err)

	var doc ProcessedDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "r1", doc.ID)
	require.Len(t, doc.Content, 2)
	assert.Equal(t, 2, doc.Content[1].Position)
	assert.Equal(t, []int{2}, doc.Metadata.LowQuality)
	assert.Equal(t, "notes.pdf", doc.Metadata.FileName)
}

func TestTextConverter(t *testing.T) {
	data, err := TextConverter{}.Convert(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, sampleResult().FullText, string(data))
}

func TestMarkdownConverter(t *testing.T) {
	data, err := MarkdownConverter{}.Convert(sampleResult())
	require.NoError(t, err)

	md := string(data)
	assert.True(t, strings.HasPrefix(md, "# notes.pdf\n"))
	assert.Contains(t, md, "## Page 1\n\nDear diary")
	assert.Contains(t, md, "## Page 2")
	assert.Contains(t, md, "_Confidence: 0.30_")
}

func TestEmptyResult(t *testing.T) {
	for _, format := range []string{"json", "txt", "md"} {
		c, err := ForFormat(format)
		require.NoError(t, err)
		_, err = c.Convert(&models.DocumentResult{})
		assert.ErrorIs(t, err, ErrEmptyResult, format)
	}
}

func TestForFormat(t *testing.T) {
	c, err := ForFormat("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Extension())

	c, err = ForFormat("Markdown")
	require.NoError(t, err)
	assert.Equal(t, "md", c.Extension())

	_, err = ForFormat("docx")
	require.Error(t, err)
}
