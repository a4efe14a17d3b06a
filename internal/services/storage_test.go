package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
)

func TestStorage_saveReadDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s := NewStorageService(dir, 1<<20)
	require.NoError(t, s.EnsureUploadDir())

	stored, err := s.SaveFile(newFileHeader(t, "Letter.TXT", []byte("History of asthma.")))
	require.NoError(t, err)
	assert.Equal(t, MimeText, stored.MimeType)
	assert.Equal(t, int64(18), stored.Size)
	assert.Equal(t, ".txt", filepath.Ext(stored.StoredName))

	data, err := s.ReadFile(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, "History of asthma.", string(data))

	require.NoError(t, s.DeleteFile(stored.StoredName))
	_, err = os.Stat(s.GetFilePath(stored.StoredName))
	assert.True(t, os.IsNotExist(err))
}

func TestStorage_docxSniffedAsZip(t *testing.T) {
	s := NewStorageService(t.TempDir(), 1<<20)

	doc := buildDOCX(t, `<w:document><w:body><w:p><w:r><w:t>Asthma</w:t></w:r></w:p></w:body></w:document>`)
	stored, err := s.SaveFile(newFileHeader(t, "notes.docx", doc))
	require.NoError(t, err)
	assert.Equal(t, MimeDOCX, stored.MimeType)
}

func TestStorage_rejects(t *testing.T) {
	dir := t.TempDir()
	s := NewStorageService(dir, 10)

	_, err := s.SaveFile(newFileHeader(t, "virus.exe", []byte("MZ")))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = s.SaveFile(newFileHeader(t, "big.txt", []byte("this is more than ten bytes")))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = s.SaveFile(newFileHeader(t, "fake.pdf", []byte("plain")))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
