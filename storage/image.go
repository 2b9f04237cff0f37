package storage

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"yatube/domain"
	"yatube/errs"
)

// ImageService stores uploaded images in a directory on disk.
// It implements the domain.ImageService interface.
type ImageService struct {
	imageValidator
}

// imageValidator runs validations on incoming Image data.
// On success, it passes the data on to imageDisk.
// Otherwise, it returns the error of the validation that has failed.
type imageValidator struct {
	imageDisk
}

// imageDisk writes and removes image files below baseDir.
// It assumes that data has been validated.
type imageDisk struct {
	baseDir string
}

// NewImageService returns an ImageService that keeps its files in baseDir.
func NewImageService(baseDir string) *ImageService {
	return &ImageService{
		imageValidator{
			imageDisk{
				baseDir: baseDir,
			},
		},
	}
}

// Ensure the ImageService struct properly implements the domain.ImageService interface.
var _ domain.ImageService = &ImageService{}

// Create runs validations needed for storing uploaded images in the filesystem.
// On success, img.Filename holds the new unique name of the stored file.
func (iv *imageValidator) Create(img *domain.Image) error {
	err := runImageValFns(img,
		iv.extensionValid,
		iv.contentTypeValid,
		iv.contentTypeExtensionMatch,
		iv.belowMaxSize,
		iv.fileNameUnique,
	)
	if err != nil {
		return err
	}
	return iv.imageDisk.Create(img)
}

// Delete removes an image and its thumbnail. Paths leaving the media directory are rejected.
func (iv *imageValidator) Delete(relativePath string) error {
	if relativePath == "" {
		return nil
	}
	clean := filepath.Clean(filepath.FromSlash(relativePath))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return errs.Errorf(errs.EINVALID, "Invalid image path.")
	}
	return iv.imageDisk.Delete(relativePath)
}

type imageValFn func(img *domain.Image) error

// runImageValFns runs any number of functions of type imageValFn on the passed in Image object.
func runImageValFns(img *domain.Image, fns ...imageValFn) error {
	for _, fn := range fns {
		if err := fn(img); err != nil {
			return err
		}
	}
	return nil
}

// belowMaxSize makes sure that the image to be uploaded does not exceed domain.MaxUploadSize.
func (iv *imageValidator) belowMaxSize(img *domain.Image) error {
	size, err := img.File.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if err = resetReaderPosition(img); err != nil {
		return err
	}
	if size > domain.MaxUploadSize {
		return errs.Errorf(errs.EINVALID, "Image %s exceeds upload size limit of %dMB.",
			img.Filename, domain.MaxUploadSize>>20)
	}
	return nil
}

// contentTypeValid sniffs the first bytes of the file. Only gif, jpeg and png are accepted.
func (iv *imageValidator) contentTypeValid(img *domain.Image) error {
	buffer := make([]byte, 512)
	n, err := img.File.Read(buffer)
	if err != nil && err != io.EOF {
		return err
	}
	if err = resetReaderPosition(img); err != nil {
		return err
	}
	contentType := http.DetectContentType(buffer[:n])
	switch contentType {
	case "image/gif", "image/jpeg", "image/png":
	default:
		return errs.Errorf(errs.EINVALID,
			"Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	img.ContentType = contentType
	return nil
}

// contentTypeExtensionMatch makes sure that the image's filename extension and content type match.
func (iv *imageValidator) contentTypeExtensionMatch(img *domain.Image) error {
	contentType := strings.TrimPrefix(img.ContentType, "image/")
	ext := strings.TrimPrefix(img.Extension, ".")
	if contentType != ext {
		return errs.Errorf(errs.EINVALID, "Image %s content-type %s does not match extension %s.",
			img.Filename, img.ContentType, img.Extension)
	}
	return nil
}

// extensionValid makes sure that the image has the extension .gif, .jpeg, .jpg or .png.
// .jpg is renamed to .jpeg for consistency.
func (iv *imageValidator) extensionValid(img *domain.Image) error {
	ext := strings.ToLower(filepath.Ext(img.Filename))
	switch ext {
	case ".gif", ".png", ".jpeg":
	case ".jpg":
		ext = ".jpeg"
	default:
		return errs.Errorf(errs.EINVALID, "Image %s invalid extension, must be .gif, .jpeg or .png.", img.Filename)
	}
	img.Extension = ext
	return nil
}

// fileNameUnique replaces the image's name with a random uuid.
func (iv *imageValidator) fileNameUnique(img *domain.Image) error {
	img.Filename = uuid.NewString() + img.Extension
	return nil
}

// resetReaderPosition goes back to the beginning of the file, so that subsequent reads will work.
func resetReaderPosition(img *domain.Image) error {
	_, err := img.File.Seek(0, io.SeekStart)
	return err
}

// Create stores the image below baseDir/ownerType/ownerID/ and a thumbnail next to it.
func (d *imageDisk) Create(img *domain.Image) error {
	dir := filepath.Join(d.baseDir, img.OwnerType, strconv.Itoa(img.OwnerID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating image directory")
	}
	dst, err := os.Create(filepath.Join(dir, img.Filename))
	if err != nil {
		return errors.Wrap(err, "creating image file")
	}
	defer dst.Close()
	if _, err = io.Copy(dst, img.File); err != nil {
		return errors.Wrap(err, "writing image file")
	}

	if err = resetReaderPosition(img); err != nil {
		return err
	}
	src, err := imaging.Decode(img.File)
	if err != nil {
		os.Remove(dst.Name())
		return errs.Errorf(errs.EINVALID,
			"Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	thumb := imaging.Fill(src, domain.ThumbWidth, domain.ThumbHeight, imaging.Center, imaging.Lanczos)
	thumbPath := filepath.Join(d.baseDir, filepath.FromSlash(domain.ThumbnailPath(img.RelativePath())))
	if err := imaging.Save(thumb, thumbPath); err != nil {
		os.Remove(dst.Name())
		return errors.Wrap(err, "saving thumbnail")
	}
	return nil
}

// Delete removes an image and its thumbnail. Missing files are ignored.
func (d *imageDisk) Delete(relativePath string) error {
	for _, p := range []string{relativePath, domain.ThumbnailPath(relativePath)} {
		err := os.Remove(filepath.Join(d.baseDir, filepath.FromSlash(p)))
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "removing image")
		}
	}
	return nil
}
