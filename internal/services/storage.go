package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"alfredoptarigan/underwriting-intake/internal/apperrors"
)

var allowedExtensions = map[string]string{
	".pdf":  MimePDF,
	".jpg":  MimeJPEG,
	".jpeg": MimeJPEG,
	".png":  MimePNG,
	".docx": MimeDOCX,
	".txt":  MimeText,
}

type StoredFile struct {
	StoredName string
	Path       string
	MimeType   string
	Size       int64
}

type StorageService interface {
	SaveFile(file *multipart.FileHeader) (*StoredFile, error)
	ReadFile(path string) ([]byte, error)
	GetFilePath(filename string) string
	DeleteFile(filename string) error
	EnsureUploadDir() error
}

type storageService struct {
	uploadPath  string
	maxFileSize int64
}

func NewStorageService(uploadPath string, maxFileSize int64) StorageService {
	return &storageService{
		uploadPath:  uploadPath,
		maxFileSize: maxFileSize,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

// SaveFile validates extension and size, writes the upload under a unique
// name and checks the sniffed content type agrees with the extension.
func (s *storageService) SaveFile(file *multipart.FileHeader) (*StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	expected, ok := allowedExtensions[ext]
	if !ok {
		return nil, apperrors.BadRequest("Invalid file type. Only PDF, JPG, PNG, DOCX and TXT are allowed.")
	}
	if s.maxFileSize > 0 && file.Size > s.maxFileSize {
		return nil, apperrors.BadRequest(fmt.Sprintf("File too large. Maximum size is %dMB.", s.maxFileSize/(1024*1024)))
	}

	uniqueFilename := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	filePath := filepath.Join(s.uploadPath, uniqueFilename)

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	written, err := io.Copy(dst, src)
	dst.Close()
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	if !contentMatches(expected, mtype) {
		os.Remove(filePath)
		return nil, apperrors.BadRequest(fmt.Sprintf("File content (%s) does not match extension %s", mtype.String(), ext))
	}

	return &StoredFile{
		StoredName: uniqueFilename,
		Path:       filePath,
		MimeType:   expected,
		Size:       written,
	}, nil
}

func (s *storageService) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.uploadPath, filename)
}

func (s *storageService) DeleteFile(filename string) error {
	filePath := s.GetFilePath(filename)
	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// contentMatches walks the detected type's parents so that, for example, a
// DOCX sniffed only as a zip container is still accepted.
func contentMatches(expected string, detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(expected) {
			return true
		}
	}
	return expected == MimeDOCX && detected.Is("application/zip")
}
