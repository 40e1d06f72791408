package utils

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore keeps uploads in Cloudinary folders named after the policy dir.
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %v", err)
	}
	return &CloudinaryStore{cld: cld}, nil
}

func (s *CloudinaryStore) Save(ctx context.Context, policy UploadPolicy, in *Incoming) (StoredFile, error) {
	file, err := in.Header.Open()
	if err != nil {
		return StoredFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	name := strings.TrimSuffix(GenerateFilename(policy.Prefix, in.Ext), in.Ext)
	uploadResp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       policy.Dir,
		PublicID:     name,
		ResourceType: "auto",
		Overwrite:    api.Bool(false),
	})
	if err != nil {
		return StoredFile{}, fmt.Errorf("upload error: %v", err)
	}
	if uploadResp.Error.Message != "" {
		return StoredFile{}, fmt.Errorf("upload error: %s", uploadResp.Error.Message)
	}

	return StoredFile{
		Filename:     name + in.Ext,
		OriginalName: in.Header.Filename,
		Path:         uploadResp.SecureURL,
		Size:         int64(uploadResp.Bytes),
		MimeType:     in.MimeType,
	}, nil
}

// Delete destroys the asset behind a Cloudinary delivery URL.
func (s *CloudinaryStore) Delete(ctx context.Context, ref string) error {
	publicID, resourceType, err := extractPublicID(ref)
	if err != nil {
		return fmt.Errorf("could not extract public ID: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err = s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("delete error: %v", err)
	}
	return nil
}

// extractPublicID turns
// https://res.cloudinary.com/demo/image/upload/v1234567890/events/abc123.jpg
// into ("events/abc123", "image").
func extractPublicID(ref string) (string, string, error) {
	parsedURL, err := url.Parse(ref)
	if err != nil {
		return "", "", err
	}

	parts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	uploadAt := -1
	for i, p := range parts {
		if p == "upload" {
			uploadAt = i
			break
		}
	}
	if uploadAt < 1 || uploadAt+1 >= len(parts) {
		return "", "", fmt.Errorf("invalid cloudinary URL format")
	}
	resourceType := parts[uploadAt-1]

	rest := parts[uploadAt+1:]
	if len(rest) > 1 && isVersionSegment(rest[0]) {
		rest = rest[1:]
	}

	joined := path.Join(rest...)
	return strings.TrimSuffix(joined, path.Ext(joined)), resourceType, nil
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
