package model

import "time"

type FileType string

const (
	FileTypeText     FileType = "text"
	FileTypeDocument FileType = "document"
	FileTypePhoto    FileType = "photo"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeVoice    FileType = "voice"
)

// FileItem is a stored content item addressed by its capability token.
type FileItem struct {
	Token         string    `json:"token"`
	Owner         int64     `json:"owner"`
	Type          FileType  `json:"type"`
	PayloadRef    string    `json:"payload_ref"`
	Name          string    `json:"name"`
	Size          int64     `json:"size"`
	CostPoints    int64     `json:"cost_points"`
	Downloads     int64     `json:"downloads"`
	MaxDownloads  int64     `json:"max_downloads"`
	DeleteOnLimit bool      `json:"delete_on_limit"`
	Disabled      bool      `json:"disabled"`
	CreatedAt     time.Time `json:"created_at"`
	LastDownload  time.Time `json:"last_download,omitempty"`
}

// QuotaExhausted reports whether the per-item download quota is spent.
func (f *FileItem) QuotaExhausted() bool {
	return f.MaxDownloads > 0 && f.Downloads >= f.MaxDownloads
}
