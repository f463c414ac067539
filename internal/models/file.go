package models

import "time"

const (
	FileTypeFolder = "folder"
	FileTypeFile   = "file"
	FileTypeImage  = "image"
)

// FileNode is a single entry of the metadata tree: a folder or a stored
// file/image. ParentID is nil for root-level nodes; the API layer serializes
// nil as the sentinel 0. LocalPath is set only for files and images.
type FileNode struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	FileType  string    `json:"type"`
	IsPublic  bool      `json:"is_public"`
	ParentID  *int64    `json:"parent_id"`
	LocalPath *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CanRead is the single authorization decision point: a node is readable by
// a requester when it is public or the requester owns it. It applies to
// metadata and raw content alike.
func (f *FileNode) CanRead(userID int64) bool {
	return f.IsPublic || f.UserID == userID
}
