package types

// EntryType classifies a directory entry by the first character of its
// permission string.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
	EntryLink      EntryType = "link"
	EntryUnknown   EntryType = "unknown"
)

// FileEntry is one parsed line of a long directory listing.
type FileEntry struct {
	Name                  string    `json:"name"`
	Type                  EntryType `json:"type"`
	Size                  int64     `json:"size"`
	SizeFormatted         string    `json:"sizeFormatted"`
	ModifiedTime          int64     `json:"modifiedTime"` // unix seconds
	ModifiedTimeFormatted string    `json:"modifiedTimeFormatted"`
	Permissions           string    `json:"permissions"`
	IsHidden              bool      `json:"isHidden"`
	FullPath              string    `json:"fullPath"`
	IsExecutable          bool      `json:"isExecutable"`
	LinkTarget            string    `json:"linkTarget,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e FileEntry) IsDir() bool {
	return e.Type == EntryDirectory
}

// DirListing is the response for listing a directory.
type DirListing struct {
	Path       string      `json:"path"`
	Entries    []FileEntry `json:"entries"`
	TotalFiles int         `json:"totalFiles"`
	TotalSize  int64       `json:"totalSize"` // bytes, regular files only
}

// NameRequest is the request body for creating or renaming an entry.
type NameRequest struct {
	Path    string `json:"path,omitempty"`
	Name    string `json:"name"`
	NewName string `json:"newName,omitempty"`
}
