// Package drive adapts the Google Drive API to what the pipeline needs:
// list audio files in the source folder and download them to scratch space.
package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/nwrslept/CallAnalyzer/internal/types"
)

type Service struct {
	srv        *gdrive.Service
	folderID   string
	tempFolder string
}

// New authorizes against Drive with a service account credentials file.
func New(ctx context.Context, credentialsFile, folderID, tempFolder string) (*Service, error) {
	srv, err := gdrive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gdrive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("drive auth failed: %w", err)
	}
	return &Service{srv: srv, folderID: folderID, tempFolder: tempFolder}, nil
}

// ListAudioFiles returns the .mp3/.wav recordings in the source folder,
// ignoring trashed items. Order is whatever Drive returns; the pipeline
// processes it as-is.
func (s *Service) ListAudioFiles(ctx context.Context) ([]types.DriveFile, error) {
	query := fmt.Sprintf(
		"'%s' in parents and (mimeType contains 'audio/' or name contains '.mp3' or name contains '.wav') and trashed=false",
		s.folderID,
	)

	var out []types.DriveFile
	pageToken := ""
	for {
		call := s.srv.Files.List().
			Context(ctx).
			Q(query).
			Fields("nextPageToken, files(id, name)")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("drive list failed: %w", err)
		}
		for _, f := range res.Files {
			out = append(out, types.DriveFile{ID: f.Id, Name: f.Name})
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}
	return out, nil
}

// Download fetches one file into the scratch folder and returns its local path.
func (s *Service) Download(ctx context.Context, fileID, name string) (string, error) {
	if err := os.MkdirAll(s.tempFolder, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp folder: %w", err)
	}

	resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("drive download failed: %w", err)
	}
	defer resp.Body.Close()

	localPath := filepath.Join(s.tempFolder, name)
	out, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create local file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("failed to write local file: %w", err)
	}
	return localPath, nil
}
