package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Document extensions accepted for export attachments and the detected
// types each may carry. Office Open XML files may sniff as plain zip.
var documentTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"},
}

var (
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	ErrContentMismatch     = errors.New("file content does not match its extension")
)

// AllowedExtensions lists the document extensions, without dots.
func AllowedExtensions() []string {
	return []string{"pdf", "doc", "docx", "xlsx"}
}

// DetectDocument checks name's extension and sniffs the head of r. It
// returns the detected MIME type and a reader yielding the full content.
func DetectDocument(name string, r io.Reader) (string, io.Reader, error) {
	ext := strings.ToLower(path.Ext(name))
	allowed, ok := documentTypes[ext]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrExtensionNotAllowed, ext)
	}
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		for _, want := range allowed {
			if m.Is(want) {
				return detected.String(), io.MultiReader(bytes.NewReader(head), r), nil
			}
		}
	}
	return "", nil, fmt.Errorf("%w: %s detected for %s", ErrContentMismatch, detected.String(), ext)
}
