package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/handwriting-ocr/internal/models"
	"github.com/feichai0017/handwriting-ocr/pkg/logger"
)

// buildPDF writes a valid PDF with n blank pages and a correct xref table.
func buildPDF(n int) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i*2)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))

	for i := 0; i < n; i++ {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Contents %d 0 R /Resources << >> >>", 4+i*2))
		obj("<< /Length 0 >>\nstream\n\nendstream")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	return buf.Bytes()
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(buildPDF(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPageCountGarbage(t *testing.T) {
	_, err := PageCount([]byte("%PDF-1.4\nnot really a pdf"))
	require.Error(t, err)
}

func TestRasterizeOutOfRangeWithKnownCount(t *testing.T) {
	r := NewRasterizer(Config{PdftoppmPath: "pdftoppm-missing-binary", TempDir: t.TempDir()}, logger.NewTestLogger())

	src, err := r.Open(context.Background(), &models.Document{Data: buildPDF(2)})
	require.NoError(t, err)
	defer src.Close()

	count, err := src.PageCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = src.Rasterize(context.Background(), 3)
	assert.ErrorIs(t, err, ErrPageNotFound)

	_, err = src.Rasterize(context.Background(), 0)
	assert.ErrorIs(t, err, ErrPageNotFound)

	// 二进制不存在是普通失败，不是越界
	_, err = src.Rasterize(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrPageNotFound))
}

func TestCloseRemovesSpool(t *testing.T) {
	r := NewRasterizer(Config{TempDir: t.TempDir()}, logger.NewTestLogger())

	src, err := r.Open(context.Background(), &models.Document{Data: buildPDF(1)})
	require.NoError(t, err)

	dir := src.(*Source).dir
	_, err = os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, src.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestClassify(t *testing.T) {
	err := classify(7, errors.New("exit status 99"), "Wrong page range given: the first page (7) can not be after the last page (3).")
	assert.ErrorIs(t, err, ErrPageNotFound)

	err = classify(1, errors.New("exit status 1"), "Syntax Error: broken")
	assert.False(t, errors.Is(err, ErrPageNotFound))
	assert.Contains(t, err.Error(), "Syntax Error")
}

func TestRasterizeWithPdftoppm(t *testing.T) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not installed")
	}

	r := NewRasterizer(Config{DPI: 72, TempDir: t.TempDir()}, logger.NewTestLogger())
	require.NoError(t, r.Available())

	src, err := r.Open(context.Background(), &models.Document{Data: buildPDF(2)})
	require.NoError(t, err)
	defer src.Close()

	page, err := src.Rasterize(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.PageNumber)
	assert.Equal(t, "image/png", page.ContentType)
	assert.True(t, bytes.HasPrefix(page.Data, []byte("\x89PNG")))

	// 探测模式下越界由 pdftoppm 报告
	probe := &Source{rasterizer: r, dir: src.(*Source).dir, path: src.(*Source).path, countErr: errors.New("unknown")}
	_, err = probe.Rasterize(context.Background(), 5)
	assert.ErrorIs(t, err, ErrPageNotFound)
}
