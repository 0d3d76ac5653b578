package entity

import "time"

// UploadRecord is the local history entry written for every successful upload.
// It is informational only; delete authorization never consults it.
type UploadRecord struct {
	ID          int64      `json:"id"`
	ItemID      string     `json:"item_id"`
	Name        string     `json:"name"`
	Kind        string     `json:"kind"` // IMAGE, FILE
	RemotePath  string     `json:"remote_path"`
	LogicalPath string     `json:"logical_path"`
	Size        int64      `json:"size"`
	CreatedAt   time.Time  `json:"created_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted returns true once a delete link has been used successfully
func (r *UploadRecord) IsDeleted() bool {
	return r.DeletedAt != nil
}
