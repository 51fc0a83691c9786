package config

const (
	defaultConfigPath       = "~/.config/cadence/config.toml"
	defaultLogDir           = "~/.local/share/cadence/logs"
	defaultStateDir         = "~/.local/share/cadence"
	defaultDecoderBinary    = "flac"
	defaultSourceExtension  = ".flac"
	defaultEncoderBinary    = "lame"
	defaultTargetExtension  = ".mp3"
	defaultTagStyle         = "lame"
	defaultFFprobeBinary    = "ffprobe"
	defaultFFmpegBinary     = "ffmpeg"
	defaultChunkSize        = 32 * 1024
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultLogMaxSizeMB     = 20
)

func defaultDecoderOptions() []string {
	return []string{"--decode", "--stdout", "--silent"}
}

func defaultEncoderOptions() []string {
	return []string{"--quiet", "-V", "2"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Decoder: Decoder{
			Binary:          defaultDecoderBinary,
			Options:         defaultDecoderOptions(),
			SourceExtension: defaultSourceExtension,
		},
		Encoder: Encoder{
			Binary:    defaultEncoderBinary,
			Options:   defaultEncoderOptions(),
			Extension: defaultTargetExtension,
			TagStyle:  defaultTagStyle,
		},
		Metadata: Metadata{
			FFprobeBinary: defaultFFprobeBinary,
			FFmpegBinary:  defaultFFmpegBinary,
		},
		Conversion: Conversion{
			ChunkSize: defaultChunkSize,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
		},
	}
}
