package validator

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

func fileHeader(t *testing.T, name, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["file"][0]
}

func TestValidateFileAcceptsPDF(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	data := []byte("%PDF-1.7\n...")
	doc, info, err := v.ValidateFile(fileHeader(t, "notes.pdf", "application/pdf", data))
	require.NoError(t, err)

	assert.Equal(t, "notes.pdf", doc.Filename)
	assert.Equal(t, data, doc.Data)
	assert.EqualValues(t, len(data), info.Size)
	assert.Len(t, info.Hash, 64)
}

func TestValidateRejections(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), &ValidatorConfig{MaxFileSize: 16})

	cases := []struct {
		name        string
		contentType string
		data        []byte
		want        error
		message     string
	}{
		{"empty", "application/pdf", nil, ErrEmptyFile, "empty"},
		{"too large", "application/pdf", bytes.Repeat([]byte("a"), 17), ErrFileTooLarge, "maximum limit"},
		{"content type", "image/png", []byte("%PDF-1.4"), ErrInvalidContentType, "content type"},
		{"magic", "application/pdf", []byte("GIF89a...."), ErrInvalidFormat, "Invalid format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Validate("x.pdf", tc.contentType, tc.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want))
			assert.Contains(t, err.Error(), tc.message)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.NotEmpty(t, verr.Code)
		})
	}
}

func TestValidateFileChecksSizeBeforeReading(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), &ValidatorConfig{MaxFileSize: 4})

	_, _, err := v.ValidateFile(fileHeader(t, "big.pdf", "application/pdf", []byte("%PDF-1.7")))
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestContentTypeWithParameters(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	_, err := v.Validate("x.pdf", "application/pdf; charset=binary", []byte("%PDF-1.4"))
	require.NoError(t, err)
}

func TestTooLargeCitesLimit(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)
	assert.Contains(t, v.TooLarge().Error(), "50MB")
}
