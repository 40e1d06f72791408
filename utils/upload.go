package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MB = 1 << 20

	FieldEventImage       = "image"
	FieldNoticeAttachment = "attachment"
	FieldProfileImage     = "profileImage"
)

type UploadReason int

const (
	UploadTooLarge UploadReason = iota + 1
	UploadWrongType
	UploadTooManyFiles
	UploadUnexpectedField
	UploadUnreadable
)

// UploadError is returned for any rejected file; Message is user-facing.
type UploadError struct {
	Reason  UploadReason
	Message string
}

func (e *UploadError) Error() string { return e.Message }

// UploadPolicy describes what one resource accepts on its single file field.
type UploadPolicy struct {
	Dir        string // subdirectory / remote folder
	Prefix     string // generated filename prefix
	Field      string
	MaxSize    int64
	Extensions []string
	MimeTypes  []string
	TypeHint   string
}

var imageExtensions = []string{".jpeg", ".jpg", ".png", ".gif", ".webp"}
var imageMimeTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var (
	EventImagePolicy = UploadPolicy{
		Dir: "events", Prefix: "event", Field: FieldEventImage, MaxSize: 5 * MB,
		Extensions: imageExtensions,
		MimeTypes:  imageMimeTypes,
		TypeHint:   "Only image files (JPEG, PNG, GIF, WebP) are allowed.",
	}
	NoticeAttachmentPolicy = UploadPolicy{
		Dir: "notices", Prefix: "notice", Field: FieldNoticeAttachment, MaxSize: 5 * MB,
		Extensions: append(append([]string{}, imageExtensions...), ".pdf", ".doc", ".docx"),
		MimeTypes: append(append([]string{}, imageMimeTypes...),
			"application/pdf",
			"application/msword",
			"application/x-ole-storage",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		),
		TypeHint: "Only image and document files (JPEG, PNG, GIF, WebP, PDF, DOC, DOCX) are allowed.",
	}
	ProfileImagePolicy = UploadPolicy{
		Dir: "profiles", Prefix: "profile", Field: FieldProfileImage, MaxSize: 2 * MB,
		Extensions: imageExtensions,
		MimeTypes:  imageMimeTypes,
		TypeHint:   "Only image files (JPEG, PNG, GIF, WebP) are allowed.",
	}
)

// Incoming is a file that passed policy checks and is ready to store.
type Incoming struct {
	Header   *multipart.FileHeader
	Ext      string
	MimeType string
}

// PickUpload returns the single file on the policy's field, nil when none was
// sent, or an UploadError.
func (p UploadPolicy) PickUpload(form *multipart.Form) (*Incoming, error) {
	if form == nil || len(form.File) == 0 {
		return nil, nil
	}
	for field, files := range form.File {
		if field != p.Field && len(files) > 0 {
			return nil, &UploadError{Reason: UploadUnexpectedField, Message: "Unexpected file field."}
		}
	}
	files := form.File[p.Field]
	switch {
	case len(files) == 0:
		return nil, nil
	case len(files) > 1:
		return nil, &UploadError{Reason: UploadTooManyFiles, Message: "Too many files. Maximum 1 file allowed."}
	}
	return p.Check(files[0])
}

// Check enforces size, extension and sniffed content type.
func (p UploadPolicy) Check(fh *multipart.FileHeader) (*Incoming, error) {
	if fh.Size > p.MaxSize {
		return nil, &UploadError{
			Reason:  UploadTooLarge,
			Message: fmt.Sprintf("File too large. Maximum size allowed is %dMB.", p.MaxSize/MB),
		}
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !containsString(p.Extensions, ext) {
		return nil, &UploadError{Reason: UploadWrongType, Message: p.TypeHint}
	}

	file, err := fh.Open()
	if err != nil {
		return nil, &UploadError{Reason: UploadUnreadable, Message: "File upload error: could not read file."}
	}
	defer file.Close()

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return nil, &UploadError{Reason: UploadUnreadable, Message: "File upload error: could not read file."}
	}
	if !matchesMime(detected, p.MimeTypes) {
		return nil, &UploadError{Reason: UploadWrongType, Message: p.TypeHint}
	}

	return &Incoming{Header: fh, Ext: ext, MimeType: detected.String()}, nil
}

func matchesMime(detected *mimetype.MIME, allowed []string) bool {
	for m := detected; m != nil; m = m.Parent() {
		for _, a := range allowed {
			if m.Is(a) {
				return true
			}
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
