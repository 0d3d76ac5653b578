package entity

import "time"

// DriveItem is the subset of a Graph driveItem that the admin surface reads.
// Items are owned by the storage provider and are never mutated locally.
type DriveItem struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Size                 int64        `json:"size"`
	ETag                 string       `json:"eTag"`
	LastModifiedDateTime time.Time    `json:"lastModifiedDateTime"`
	DownloadURL          string       `json:"@microsoft.graph.downloadUrl,omitempty"`
	WebURL               string       `json:"webUrl,omitempty"`
	File                 *FileFacet   `json:"file,omitempty"`
	Folder               *FolderFacet `json:"folder,omitempty"`
}

// FileFacet is present on file items.
type FileFacet struct {
	MimeType string `json:"mimeType,omitempty"`
}

// FolderFacet is present on folder items.
type FolderFacet struct {
	ChildCount int `json:"childCount"`
}

// IsFolder returns true if the item is a directory
func (i *DriveItem) IsFolder() bool {
	return i.Folder != nil
}
