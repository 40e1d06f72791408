package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StoredFile is what a FileStore returns after persisting an upload.
type StoredFile struct {
	Filename     string
	OriginalName string
	Path         string // relative "uploads/..." path or absolute URL
	Size         int64
	MimeType     string
}

type FileStore interface {
	Save(ctx context.Context, policy UploadPolicy, in *Incoming) (StoredFile, error)
	Delete(ctx context.Context, ref string) error
}

// LocalStore keeps uploads on disk under Root/<policy dir>.
type LocalStore struct {
	Root      string
	URLPrefix string // public prefix stored in documents, e.g. "uploads"
}

func NewLocalStore(root string) (*LocalStore, error) {
	s := &LocalStore{Root: root, URLPrefix: "uploads"}
	for _, p := range []UploadPolicy{EventImagePolicy, NoticeAttachmentPolicy, ProfileImagePolicy} {
		if err := os.MkdirAll(filepath.Join(root, p.Dir), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir %s: %w", p.Dir, err)
		}
	}
	return s, nil
}

func GenerateFilename(prefix, ext string) string {
	return prefix + "-" + uuid.NewString() + ext
}

func (s *LocalStore) Save(ctx context.Context, policy UploadPolicy, in *Incoming) (StoredFile, error) {
	name := GenerateFilename(policy.Prefix, in.Ext)
	dst := filepath.Join(s.Root, policy.Dir, name)

	src, err := in.Header.Open()
	if err != nil {
		return StoredFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create %s: %w", dst, err)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return StoredFile{}, fmt.Errorf("write %s: %w", dst, err)
	}

	return StoredFile{
		Filename:     name,
		OriginalName: in.Header.Filename,
		Path:         path.Join(s.URLPrefix, policy.Dir, name),
		Size:         n,
		MimeType:     in.MimeType,
	}, nil
}

// Delete removes a previously stored file. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	rel := strings.TrimPrefix(path.Clean("/"+ref), "/")
	if !strings.HasPrefix(rel, s.URLPrefix+"/") {
		return fmt.Errorf("refusing to delete %q: not a managed upload", ref)
	}
	rel = strings.TrimPrefix(rel, s.URLPrefix+"/")
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
