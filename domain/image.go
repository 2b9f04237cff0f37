package domain

import (
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	// OwnerTypePost expresses that an Image belongs to a Post.
	OwnerTypePost = "posts"
	// MaxUploadSize determines the maximum filesize of an image to be uploaded.
	MaxUploadSize int64 = 5 << 20 // 5 Megabyte
	// ThumbWidth and ThumbHeight are the dimensions of the thumbnail stored next to every image.
	ThumbWidth  = 960
	ThumbHeight = 339
)

// Image represents an uploaded image file. Images have no table of their own, a post stores
// the RelativePath of its image. The owner is part of the location on disk:
// an image uploaded by the user with ID 1 is stored in posts/1/unique_name.png,
// inside the configured media directory.
type Image struct {
	OwnerType   string
	OwnerID     int
	File        io.ReadSeeker
	Filename    string
	Extension   string
	ContentType string
}

// ImageService is a set of methods to manipulate and work with the Image model and respective image files.
type ImageService interface {
	Create(img *Image) error
	Delete(relativePath string) error
}

// RelativePath returns the path of the image relative to the media directory.
func (i *Image) RelativePath() string {
	return fmt.Sprintf("%v/%v/%v", i.OwnerType, i.OwnerID, i.Filename)
}

// ThumbnailPath returns the path of the thumbnail that belongs to the image at relativePath.
// It returns the empty string when there is no image.
func ThumbnailPath(relativePath string) string {
	if relativePath == "" {
		return ""
	}
	ext := path.Ext(relativePath)
	return fmt.Sprintf("%s_%dx%d%s", strings.TrimSuffix(relativePath, ext), ThumbWidth, ThumbHeight, ext)
}
