package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "zomatoclean/internal/errors"
	"zomatoclean/internal/infrastructure"
)

// SupportedExtensions lists the source formats the loader reads
var SupportedExtensions = []string{".csv", ".xlsx"}

// FileValidator checks input files and output directories before a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	return &FileValidator{logger: infrastructure.WithComponent(logger, "validation.files")}
}

// ValidateSourceFile checks that path is a readable, non-empty .csv or
// .xlsx file and not an editor lock file
func (v *FileValidator) ValidateSourceFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	supported := false
	for _, e := range SupportedExtensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		v.logger.Error("unsupported source format",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewMalformedSourceError(path,
			fmt.Errorf("unsupported extension %q, expected one of %v", ext, SupportedExtensions))
	}

	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("skipping temporary Excel file", slog.String("file", path))
		return apperrors.NewMalformedSourceError(path, fmt.Errorf("temporary Excel lock file"))
	}

	info, _ := os.Stat(path)
	if info.Size() == 0 {
		return apperrors.NewMalformedSourceError(path, fmt.Errorf("file is empty"))
	}
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("file does not exist", slog.String("file", path))
		return apperrors.NewDataUnavailableError(fmt.Sprintf("file %s does not exist", path), err).
			WithContext("path", path)
	}
	if err != nil {
		v.logger.Error("failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewDataUnavailableError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		v.logger.Error("path is a directory, not a file", slog.String("path", path))
		return apperrors.NewDataUnavailableError(fmt.Sprintf("%s is a directory, not a file", path), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewDataUnavailableError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures the directory exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	testFile, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	testFile.Close()
	os.Remove(testFile.Name())

	v.logger.Debug("output directory validated", slog.String("directory", dir))
	return nil
}

// ConfinePath resolves path against root and rejects anything that lands
// outside it. Relative paths are taken relative to root. An empty path
// stays empty so the caller's default applies.
func ConfinePath(root, path, field string) (string, error) {
	if path == "" {
		return "", nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", apperrors.NewConfigError("failed to resolve "+root, err)
	}
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(absRoot, resolved)
	}
	resolved = filepath.Clean(resolved)

	rel, err := filepath.Rel(absRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperrors.NewAppError(apperrors.ErrTypeValidationFailure,
			fmt.Sprintf("%s must be inside %s", field, absRoot), err).
			WithContext("field", field)
	}
	return resolved, nil
}
