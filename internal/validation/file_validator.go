package validation

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotPDF is returned for uploads that are not PDF documents
	ErrNotPDF = errors.New("file is not a PDF document")
	// ErrUnsupportedFile is returned for series files of an unknown type
	ErrUnsupportedFile = errors.New("unsupported file type")
)

var pdfMagic = []byte("%PDF-")

// FileValidator checks uploaded documents and series files given to the CLI
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidatePDFUpload checks an upload's name, size and leading bytes
func (v *FileValidator) ValidatePDFUpload(filename string, head []byte, size, maxSize int64) error {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		v.logger.Warn("Rejected upload with wrong extension",
			slog.String("filename", filename))
		return fmt.Errorf("%w: %s", ErrNotPDF, filename)
	}
	if maxSize > 0 && size > maxSize {
		v.logger.Warn("Rejected oversized upload",
			slog.String("filename", filename),
			slog.Int64("size", size),
			slog.Int64("max_size", maxSize))
		return fmt.Errorf("%s is %d bytes, limit is %d", filename, size, maxSize)
	}
	if !bytes.HasPrefix(head, pdfMagic) {
		v.logger.Warn("Rejected upload without PDF header",
			slog.String("filename", filename))
		return fmt.Errorf("%w: %s has no PDF header", ErrNotPDF, filename)
	}
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// SeriesFileKind validates path and reports whether it holds JSON or a workbook
func (v *FileValidator) SeriesFileKind(path string) (string, error) {
	if err := v.ValidateFile(path); err != nil {
		return "", err
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Skipping temporary Excel file",
			slog.String("file", path))
		return "", fmt.Errorf("file %s is a temporary Excel file", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return "json", nil
	case ".xlsx":
		return "xlsx", nil
	default:
		v.logger.Error("Unsupported series file",
			slog.String("file", path),
			slog.String("extension", ext))
		return "", fmt.Errorf("%w: %s (extension: %s)", ErrUnsupportedFile, path, ext)
	}
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}
