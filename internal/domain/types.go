package domain

import (
	"strings"
)

// ContentTypePDF is the only declared media type the workflow accepts.
const ContentTypePDF = "application/pdf"

// Status is the coarse workflow phase rendered by the presentation layer.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusTransferring Status = "transferring"
	StatusProcessing   Status = "processing"
	StatusComplete     Status = "complete"
)

// Role names a slot that may hold at most one live transient reference.
type Role string

const (
	RolePreview  Role = "preview"
	RoleDownload Role = "download"
)

// Document is an immutable binary payload with a display name.
type Document struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Size returns the payload length in bytes.
func (d Document) Size() int {
	return len(d.Data)
}

// IsEmpty reports whether the document carries no bytes.
func (d Document) IsEmpty() bool {
	return len(d.Data) == 0
}

// IsPDF reports whether the declared media type is application/pdf.
func (d Document) IsPDF() bool {
	mediaType, _, _ := strings.Cut(d.ContentType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), ContentTypePDF)
}

// Snapshot is a read-only view of controller state for the UI.
type Snapshot struct {
	Status          Status `json:"status"`
	Attempt         uint64 `json:"attempt"`
	SourceName      string `json:"sourceName,omitempty"`
	ResultName      string `json:"resultName,omitempty"`
	ResultSize      int    `json:"resultSize,omitempty"`
	ResultPageCount int    `json:"resultPageCount,omitempty"`
	SourcePageCount int    `json:"sourcePageCount,omitempty"`
	SourceEncrypted bool   `json:"sourceEncrypted,omitempty"`
	PreviewActive   bool   `json:"previewActive"`
	PreviewURL      string `json:"previewUrl,omitempty"`
	LastError       string `json:"lastError,omitempty"`
}

// Contract selects how the processing service is driven.
type Contract string

const (
	// ContractTwoStep uploads first, then requests the processed result.
	ContractTwoStep Contract = "two-step"
	// ContractCombined attaches the file to the processing request itself.
	ContractCombined Contract = "combined"
)

// LoggingSettings controls the structured logger.
type LoggingSettings struct {
	Level  string `json:"level" toml:"level"`
	Format string `json:"format" toml:"format"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	BaseURL        string          `json:"baseUrl" toml:"base_url"`
	Contract       Contract        `json:"contract" toml:"contract"`
	RequestTimeout string          `json:"requestTimeout" toml:"request_timeout"`
	MaxUploadSize  string          `json:"maxUploadSize" toml:"max_upload_size"`
	MaxResultSize  string          `json:"maxResultSize" toml:"max_result_size"`
	DownloadDir    string          `json:"downloadDir" toml:"download_dir"`
	AutoDownload   bool            `json:"autoDownload" toml:"auto_download"`
	Logging        LoggingSettings `json:"logging" toml:"logging"`
}
