package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sahilm27/linklater/internal/apperrors"
	"github.com/sahilm27/linklater/internal/models"
	"github.com/sahilm27/linklater/internal/repository"
	"github.com/sahilm27/linklater/pkg/utils"
)

// UploadPolicy selects the destinations for a post's images. Draft-only
// posts get an object-storage copy; posts headed for LinkedIn also go
// through the two-step asset upload.
type UploadPolicy int

const (
	UploadDraftOnly UploadPolicy = iota
	UploadDualDestination
)

type UploadService interface {
	ProcessImages(ctx context.Context, tx *sql.Tx, userID, postID int64, profile *models.LinkedinProfile, files []*multipart.FileHeader, policy UploadPolicy) ([]*models.PostImage, error)
}

type uploadService struct {
	storage   ObjectStorage
	processor ImageProcessor
	li        LinkedinClient
	tp        TokenProvider
	pi        repository.PostImageRepository
}

func NewUploadService(
	storage ObjectStorage,
	processor ImageProcessor,
	li LinkedinClient,
	tp TokenProvider,
	pi repository.PostImageRepository) UploadService {
	return &uploadService{
		storage:   storage,
		processor: processor,
		li:        li,
		tp:        tp,
		pi:        pi,
	}
}

var allowedImageTypes = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {},
}

// ProcessImages runs every file through both destinations and records
// one image row per file. Destination failures are independent: a failed
// storage copy or a failed LinkedIn upload never aborts the remaining
// images, and display_order stays 0..N-1 regardless of outcomes.
func (s *uploadService) ProcessImages(ctx context.Context, tx *sql.Tx, userID, postID int64, profile *models.LinkedinProfile, files []*multipart.FileHeader, policy UploadPolicy) ([]*models.PostImage, error) {
	if len(files) > models.MaxImagesPerPost {
		return nil, apperrors.NewValidation("a post can carry at most %d images", models.MaxImagesPerPost)
	}

	var images []*models.PostImage

	for i, file := range files {
		data, mimeType, err := readImageFile(file)
		if err != nil {
			return nil, err
		}

		img := &models.PostImage{
			PostID:       postID,
			UserID:       userID,
			UploadStatus: models.UploadStatusPending,
			FileName:     file.Filename,
			FileType:     mimeType,
			FileSize:     int64(len(data)),
			DisplayOrder: i,
		}

		s.uploadToStorage(ctx, userID, img, data)

		if policy == UploadDualDestination {
			s.uploadToLinkedin(ctx, profile, img, data)
		}

		if _, err := s.pi.Create(ctx, tx, img); err != nil {
			return nil, fmt.Errorf("error saving image record: %w", err)
		}
		images = append(images, img)
	}

	return images, nil
}

func readImageFile(file *multipart.FileHeader) ([]byte, string, error) {
	f, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(data)
	if err != nil || fileType == types.Unknown {
		return nil, "", apperrors.NewValidation("unsupported file type for %q", file.Filename)
	}
	if _, ok := allowedImageTypes[fileType.Extension]; !ok {
		return nil, "", apperrors.NewValidation("file type %s is not allowed", fileType.Extension)
	}

	return data, fileType.MIME.Value, nil
}

// uploadToStorage resizes, re-encodes and stores the image. Failure here
// never blocks the rest of the pipeline; the row simply carries no
// storage URL.
func (s *uploadService) uploadToStorage(ctx context.Context, userID int64, img *models.PostImage, data []byte) {
	uploadData, contentType, err := s.processor.Process(data)
	if err != nil {
		slog.Info("image processing failed, storing original bytes", "file", img.FileName, "error", err)
		uploadData, contentType = data, img.FileType
	}

	token, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return
	}

	key := fmt.Sprintf("%d/%d-%s-%s", userID, time.Now().Unix(), token, utils.SanitizeFileName(img.FileName))

	url, err := s.storage.Upload(ctx, key, uploadData, contentType)
	if err != nil {
		slog.Error("object storage upload failed", "key", key, "error", err)
		return
	}
	img.StorageURL = url
}

// uploadToLinkedin drives the two-step exchange: register an upload slot
// for the author, then push the raw bytes to the returned URL. A failure
// marks this image failed but leaves siblings and the post untouched.
func (s *uploadService) uploadToLinkedin(ctx context.Context, profile *models.LinkedinProfile, img *models.PostImage, data []byte) {
	if profile == nil {
		img.UploadStatus = models.UploadStatusFailed
		img.UploadError = (&apperrors.ProfileMissingError{UserID: img.UserID}).Error()
		return
	}

	token, err := s.tp.EnsureFresh(ctx, profile)
	if err != nil {
		img.UploadStatus = models.UploadStatusFailed
		img.UploadError = err.Error()
		return
	}

	slot, err := s.li.RegisterImageUpload(ctx, token, profile.MemberURN)
	if err != nil {
		slog.Error("register image upload failed", "post_id", img.PostID, "error", err)
		img.UploadStatus = models.UploadStatusFailed
		img.UploadError = err.Error()
		return
	}

	if err := s.li.UploadBinary(ctx, slot.UploadURL, token, data); err != nil {
		slog.Error("image binary upload failed", "post_id", img.PostID, "error", err)
		img.UploadStatus = models.UploadStatusFailed
		img.UploadError = err.Error()
		return
	}

	img.AssetURN = slot.AssetURN
	img.UploadStatus = models.UploadStatusUploaded
}
