package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"fixlet/pkg/errors"
)

// Category classifies a file by its extension for validation policy.
type Category string

const (
	CategoryDocument Category = "document"
	CategoryArchive  Category = "archive"
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
)

// MaxOversizedBytes is the ceiling applied to the video and archive
// categories: 300 MiB, inclusive (a file of exactly this size is rejected).
const MaxOversizedBytes = 300 * 1024 * 1024

var extensionCategories = map[string]Category{
	".doc":  CategoryDocument,
	".docx": CategoryDocument,
	".xls":  CategoryDocument,
	".xlsx": CategoryDocument,
	".ppt":  CategoryDocument,
	".pptx": CategoryDocument,
	".pdf":  CategoryDocument,

	".zip": CategoryArchive,
	".rar": CategoryArchive,
	".7z":  CategoryArchive,

	".jpg":  CategoryImage,
	".jpeg": CategoryImage,
	".png":  CategoryImage,
	".gif":  CategoryImage,
	".bmp":  CategoryImage,
	".webp": CategoryImage,
	".tif":  CategoryImage,
	".tiff": CategoryImage,
	".psd":  CategoryImage,

	".mp4": CategoryVideo,
	".mov": CategoryVideo,
	".avi": CategoryVideo,
	".mkv": CategoryVideo,
	".wmv": CategoryVideo,
	".flv": CategoryVideo,
	".m4v": CategoryVideo,
	".mpg": CategoryVideo,
}

// FileDescriptor captures the local file metadata the pipeline needs.
// Immutable after creation; lifetime is one invocation.
type FileDescriptor struct {
	Path        string
	Name        string
	SizeBytes   int64
	Extension   string // lowercase, with leading dot
	ContentType string
}

// DescribeFile stats the file and classifies its content type.
// Detection falls back to application/octet-stream when the content is not
// recognizable.
func DescribeFile(path string) (*FileDescriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	contentType := "application/octet-stream"
	if mt, detectErr := mimetype.DetectFile(path); detectErr == nil {
		contentType = mt.String()
	}

	return &FileDescriptor{
		Path:        path,
		Name:        filepath.Base(path),
		SizeBytes:   info.Size(),
		Extension:   strings.ToLower(filepath.Ext(path)),
		ContentType: contentType,
	}, nil
}

// CategoryOf returns the allow-list category for an extension, or false when
// the extension is not supported.
func CategoryOf(extension string) (Category, bool) {
	c, ok := extensionCategories[strings.ToLower(extension)]
	return c, ok
}

// Validate applies the acceptance policy. Pure function of extension and
// size; no side effects.
func (f *FileDescriptor) Validate() error {
	category, ok := CategoryOf(f.Extension)
	if !ok {
		return errors.New(errors.CodeUnsupportedExtension,
			"file type %q is not supported", f.Extension).
			WithFile(f.Extension, f.SizeBytes)
	}

	switch category {
	case CategoryVideo:
		if f.SizeBytes >= MaxOversizedBytes {
			return errors.New(errors.CodeVideoTooLarge,
				"video file exceeds the 300 MiB limit").
				WithFile(f.Extension, f.SizeBytes)
		}
	case CategoryArchive:
		if f.SizeBytes >= MaxOversizedBytes {
			return errors.New(errors.CodeZipTooLarge,
				"archive file exceeds the 300 MiB limit").
				WithFile(f.Extension, f.SizeBytes)
		}
	}

	return nil
}
