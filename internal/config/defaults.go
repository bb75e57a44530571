package config

const (
	defaultDataDir            = "~/.local/share/courtreel/data"
	defaultLogDir             = "~/.local/share/courtreel/logs"
	defaultAPIBind            = "127.0.0.1:7319"
	defaultIngestTimeout      = 1800
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultRcloneBinary       = "rclone"
	defaultLinkTimeout        = 30
	defaultPadServeContextMS  = 300
	defaultPadReturnContextMS = 300
	defaultPadBestShotMS      = 1000
	defaultPadHeroMS          = 750
	defaultHeroMode           = "still"
	defaultTopShotsPerPlayer  = 50
	defaultRetryMaxAttempts   = 3
	defaultRetryBackoffBase   = 2
	defaultRetryBackoffCeil   = 600
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultJobWorkers         = 2
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// CourtLengthFeet is the long-axis court dimension used to convert
// distance-from-net depth metrics into distance-from-baseline.
const CourtLengthFeet = 44.0

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Vision: Vision{
			IngestTimeout: defaultIngestTimeout,
		},
		Tools: Tools{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			RcloneBinary:  defaultRcloneBinary,
		},
		Upload: Upload{
			LinkTimeout: defaultLinkTimeout,
		},
		Clips: Clips{
			PadServeContextMS:    defaultPadServeContextMS,
			PadReturnContextMS:   defaultPadReturnContextMS,
			PadBestShotMS:        defaultPadBestShotMS,
			PadHeroMS:            defaultPadHeroMS,
			HeroMode:             defaultHeroMode,
			CleanupIntermediates: true,
		},
		Grading: Grading{
			TopShotsPerPlayer: defaultTopShotsPerPlayer,
			ServeDepthBands: []GradeBand{
				{Bound: 2, Label: "Pro"},
				{Bound: 4, Label: "Advanced"},
				{Bound: 6, Label: "Intermediate"},
			},
			HeightBands: []GradeBand{
				{Bound: 2, Label: "Pro"},
				{Bound: 2.5, Label: "Advanced"},
				{Bound: 3, Label: "Intermediate"},
			},
			ServeKitchenBands: []GradeBand{
				{Bound: 0.9, Label: "Pro"},
				{Bound: 0.7, Label: "Advanced"},
				{Bound: 0.5, Label: "Intermediate"},
			},
			ReturnKitchenBands: []GradeBand{
				{Bound: 0.95, Label: "Pro"},
				{Bound: 0.85, Label: "Advanced"},
				{Bound: 0.7, Label: "Intermediate"},
			},
		},
		Retry: Retry{
			MaxAttempts:    defaultRetryMaxAttempts,
			BackoffBase:    defaultRetryBackoffBase,
			BackoffCeiling: defaultRetryBackoffCeil,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			JobWorkers:         defaultJobWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
