package analysis

// Config holds generation settings for video analysis and reports.
type Config struct {
	AnalysisMaxTokens   int
	AnalysisTemperature float64
	ReportMaxTokens     int
	ReportTemperature   float64

	// VideoMIMEType is attached to every video URL sent to the model.
	VideoMIMEType string
	// AttachThumbnail adds the video's still image, which gives text-only
	// providers something to look at.
	AttachThumbnail bool
}

// DefaultConfig returns the settings the analysis backend has always used.
func DefaultConfig() Config {
	return Config{
		AnalysisMaxTokens:   8192,
		AnalysisTemperature: 0.7,
		ReportMaxTokens:     2048,
		ReportTemperature:   0.7,
		VideoMIMEType:       "video/*",
		AttachThumbnail:     true,
	}
}
