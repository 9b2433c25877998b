package config

const (
	defaultDataDir = "~/.local/share/lifelog"
	defaultLogDir  = "~/.local/share/lifelog/logs"

	defaultStorageEndpoint   = "http://localhost:9000"
	defaultStorageRegion     = "us-east-1"
	defaultStorageBucket     = "lifelog-videos"
	defaultStoragePresignTTL = 3600

	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultThumbnailTimestamp = 1.0
	defaultThumbnailWidth     = 480
	defaultToolkitTimeout     = 600

	defaultWhisperBinary  = "whisper"
	defaultWhisperModel   = "base"
	defaultLanguage       = "tr"
	defaultWhisperTimeout = 900

	defaultPollInterval       = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120

	defaultAPIBind = "127.0.0.1:8337"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		DataDir: defaultDataDir,
		LogDir:  defaultLogDir,
		Storage: Storage{
			Endpoint:       defaultStorageEndpoint,
			Region:         defaultStorageRegion,
			Bucket:         defaultStorageBucket,
			PresignTTL:     defaultStoragePresignTTL,
			ForcePathStyle: true,
		},
		Toolkit: Toolkit{
			FFmpegBinary:       defaultFFmpegBinary,
			FFprobeBinary:      defaultFFprobeBinary,
			ThumbnailTimestamp: defaultThumbnailTimestamp,
			ThumbnailWidth:     defaultThumbnailWidth,
			CommandTimeout:     defaultToolkitTimeout,
		},
		Transcription: Transcription{
			Binary:         defaultWhisperBinary,
			Model:          defaultWhisperModel,
			Language:       defaultLanguage,
			TimeoutSeconds: defaultWhisperTimeout,
		},
		Workflow: Workflow{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
