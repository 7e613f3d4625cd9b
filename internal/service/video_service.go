package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/reelflow/reelflow/internal/models"
	"github.com/reelflow/reelflow/internal/repository"
)

type VideoService interface {
	Upload(ctx context.Context, userID int64, title, transcript string, file *multipart.FileHeader) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Video, error)
	VideoInfo(ctx context.Context, videoID, userID int64) (*models.Video, error)
}

type videoService struct {
	vr repository.VideoRepository
	st *StorageService
}

func NewVideoService(vr repository.VideoRepository, st *StorageService) VideoService {
	return &videoService{
		vr: vr,
		st: st,
	}
}

// Upload ingests an already-processed video directly. Artifacts coming out of
// the editing pipeline land in the same table with the same completed status.
func (s *videoService) Upload(ctx context.Context, userID int64, title, transcript string, file *multipart.FileHeader) (int64, error) {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {},
	}

	fileContent, err := file.Open()
	if err != nil {
		return 0, fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return 0, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return 0, fmt.Errorf("unsupported file type: %w", err)
	}
	if _, ok := allowedTypes[fileType.Extension]; !ok {
		return 0, fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	if err := s.st.Upload(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return 0, fmt.Errorf("error uploading file: %w", err)
	}

	video := &models.Video{
		UserID:     userID,
		Title:      title,
		Transcript: transcript,
		StorageKey: key,
		Status:     models.VideoStatusCompleted,
	}

	videoID, err := s.vr.Create(ctx, nil, video)
	if err != nil {
		return 0, err
	}

	return videoID, nil
}

func (s *videoService) List(ctx context.Context, userID int64) ([]*models.Video, error) {
	videos, err := s.vr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, errors.New("error listing videos")
	}
	return videos, nil
}

func (s *videoService) VideoInfo(ctx context.Context, videoID, userID int64) (*models.Video, error) {
	var err error

	if userID == 0 {
		err = errors.New("user is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if videoID == 0 {
		err = errors.New("video id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.vr.CheckByUserID(ctx, videoID, userID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("video doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	video, err := s.vr.GetByID(ctx, videoID)
	if err != nil {
		return nil, errors.New("error getting video info")
	}

	return video, nil
}
