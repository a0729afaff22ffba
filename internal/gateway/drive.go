package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// maxFileSize bounds how much of a file is read into memory for analysis.
const maxFileSize = 20 << 20

// File is downloaded file content.
type File struct {
	Data     []byte
	MIMEType string
}

// DriveFiles downloads file content with the Drive v3 API as the file's owner.
type DriveFiles struct {
	gw *TokenGateway
}

// NewDriveFiles wraps gw, which must be configured for the Drive API.
func NewDriveFiles(gw *TokenGateway) *DriveFiles {
	return &DriveFiles{gw: gw}
}

// Fetch downloads fileID's content as owner.
func (d *DriveFiles) Fetch(ctx context.Context, sess *Session, owner uuid.UUID, fileID string) (*File, error) {
	if fileID == "" {
		return nil, fmt.Errorf("file id cannot be empty")
	}
	client, err := d.gw.Client(ctx, sess, owner)
	if err != nil {
		return nil, err
	}
	svc, err := drive.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(d.gw.Endpoint("drive/v3")))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}

	resp, err := svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, d.gw.CheckError(ctx, sess, owner, fmt.Errorf("failed to download file %s: %w", fileID, err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileID, maxFileSize)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &File{Data: data, MIMEType: mimeType}, nil
}
