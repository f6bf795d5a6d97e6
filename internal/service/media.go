package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"teslabooking/internal/config"
	"teslabooking/internal/model"
	"teslabooking/internal/repository"
)

// objectStore is the part of the S3 client the photo upload needs.
type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// MediaService stores appointment damage photos in Cloudflare R2.
type MediaService struct {
	store        objectStore // nil when storage is not configured
	bucket       string
	publicURL    string
	photos       repository.PhotoRepository
	appointments repository.AppointmentRepository
	logger       *slog.Logger
}

// NewMediaService builds an S3-compatible client for R2. When the R2
// settings are incomplete the service is returned disabled and every upload
// fails with ErrStorageDisabled.
func NewMediaService(ctx context.Context, cfg *config.Config, photos repository.PhotoRepository, appointments repository.AppointmentRepository) (*MediaService, error) {
	s := &MediaService{
		photos:       photos,
		appointments: appointments,
		logger:       slog.Default().With("component", "media"),
	}
	if !cfg.StorageConfigured() {
		s.logger.Warn("R2 storage not configured, photo uploads disabled")
		return s, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s.store = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	s.bucket = cfg.R2BucketName
	s.publicURL = strings.TrimSuffix(cfg.R2PublicURL, "/")
	return s, nil
}

// Enabled reports whether uploads can be stored.
func (s *MediaService) Enabled() bool {
	return s.store != nil
}

// UploadPhoto checks size and type, shrinks the image to fit 1600px as JPEG,
// uploads it and records it against the appointment.
func (s *MediaService) UploadPhoto(ctx context.Context, appointmentID, uploaderID string, file multipart.File, header *multipart.FileHeader) (*model.AppointmentPhoto, error) {
	if !s.Enabled() {
		return nil, ErrStorageDisabled
	}
	if _, err := s.appointments.GetByID(ctx, appointmentID); err != nil {
		return nil, err
	}

	data, _, err := readAndValidateImage(file, header, model.MaxPhotoSizeBytes)
	if err != nil {
		return nil, err
	}
	jpegBytes, err := fitToJPEG(data, model.PhotoMaxDimension, model.PhotoJPEGQuality)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s%s", model.PhotoFolder, uuid.NewString(), model.PhotoExt)
	if err := s.putObject(ctx, key, jpegBytes, model.ContentTypeJPEG, model.PhotoCacheControl); err != nil {
		return nil, err
	}

	photo := &model.AppointmentPhoto{
		AppointmentID: appointmentID,
		ObjectKey:     key,
		URL:           fmt.Sprintf("%s/%s", s.publicURL, key),
	}
	if uploaderID != "" {
		photo.UploadedBy = &uploaderID
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		// Leave no orphan object behind when the row could not be written.
		if delErr := s.DeleteObject(ctx, key); delErr != nil {
			s.logger.Warn("orphaned photo object", "key", key, "error", delErr)
		}
		return nil, err
	}
	return photo, nil
}

// ListPhotos returns the photos attached to an appointment, oldest first.
func (s *MediaService) ListPhotos(ctx context.Context, appointmentID string) ([]model.AppointmentPhoto, error) {
	return s.photos.ListByAppointment(ctx, appointmentID)
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file multipart.File, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !model.IsAllowedImageType(contentType) {
		return nil, "", model.ErrInvalidImageType
	}

	return data, contentType, nil
}

// fitToJPEG scales the image down to fit a maxDim square, keeping the aspect
// ratio, and encodes it as JPEG. Smaller images are only re-encoded.
func fitToJPEG(data []byte, maxDim, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidImageType, err)
	}

	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *MediaService) putObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	_, err := s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}

// DeleteObject removes an object by key.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	if key == "" || s.store == nil {
		return nil
	}
	_, err := s.store.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}
