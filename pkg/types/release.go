package types

import "time"

// UpdateStatus is the state of the update checker.
type UpdateStatus string

const (
	UpdateIdle        UpdateStatus = "idle"
	UpdateChecking    UpdateStatus = "checking"
	UpdateAvailable   UpdateStatus = "available"
	UpdateDownloading UpdateStatus = "downloading"
	UpdateInstalling  UpdateStatus = "installing"
	UpdateUpdated     UpdateStatus = "updated"
	UpdateError       UpdateStatus = "error"
)

// ReleaseAsset is a downloadable file attached to a release.
type ReleaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// Release is the subset of a GitHub release the checker uses.
type Release struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	Body        string         `json:"body"`
	PublishedAt time.Time      `json:"published_at"`
	Assets      []ReleaseAsset `json:"assets"`
}

// UpdateState is reported to callers of the update endpoints.
type UpdateState struct {
	Status         UpdateStatus  `json:"status"`
	CurrentVersion string        `json:"currentVersion"`
	DeviceModel    string        `json:"deviceModel"`
	Latest         *Release      `json:"latest,omitempty"`
	Asset          *ReleaseAsset `json:"asset,omitempty"`
	HasUpdate      bool          `json:"hasUpdate"`
	Error          string        `json:"error,omitempty"`
}
