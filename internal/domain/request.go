package domain

import (
	"fmt"
	"os"
	"strings"
)

// Container represents the preferred output container for video downloads
type Container string

const (
	ContainerMP4 Container = "mp4"
	ContainerFLV Container = "flv"
	ContainerAVI Container = "avi"
)

// Quality represents the preferred maximum resolution for video downloads
type Quality string

const (
	QualityBest Quality = "best"
	Quality2160 Quality = "2160"
	Quality1080 Quality = "1080"
	Quality720  Quality = "720"
	Quality480  Quality = "480"
)

// DownloadRequest describes a single download. It is immutable once a job
// has been submitted for it.
type DownloadRequest struct {
	URL            string    `json:"url"`
	DestinationDir string    `json:"destination_dir"`
	Container      Container `json:"container"`
	Quality        Quality   `json:"quality"`
	AudioOnly      bool      `json:"audio_only"`
}

// HeightCeiling returns the maximum stream height implied by the quality
// preference, or 0 when the preference is "best" (no ceiling).
func (q Quality) HeightCeiling() int {
	switch q {
	case Quality2160:
		return 2160
	case Quality1080:
		return 1080
	case Quality720:
		return 720
	case Quality480:
		return 480
	default:
		return 0
	}
}

// ValidateContainer checks if a container preference is valid
func ValidateContainer(c Container) bool {
	return c == ContainerMP4 || c == ContainerFLV || c == ContainerAVI
}

// ValidateQuality checks if a quality preference is valid
func ValidateQuality(q Quality) bool {
	switch q {
	case QualityBest, Quality2160, Quality1080, Quality720, Quality480:
		return true
	default:
		return false
	}
}

// Validate checks that the request can be turned into a job. The destination
// directory must already exist; creating it is the caller's responsibility.
func (r *DownloadRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
		return fmt.Errorf("unsupported url scheme: %s", r.URL)
	}
	if r.DestinationDir == "" {
		return fmt.Errorf("destination directory is required")
	}
	info, err := os.Stat(r.DestinationDir)
	if err != nil {
		return fmt.Errorf("destination directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination is not a directory: %s", r.DestinationDir)
	}
	if !r.AudioOnly {
		if !ValidateContainer(r.Container) {
			return fmt.Errorf("invalid container: %s", r.Container)
		}
		if !ValidateQuality(r.Quality) {
			return fmt.Errorf("invalid quality: %s", r.Quality)
		}
	}
	return nil
}
