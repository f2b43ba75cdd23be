package config

const (
	defaultConfigPath        = "~/.config/hlssafe/config.toml"
	projectConfigName        = "hlssafe.toml"
	defaultLogDir            = "~/.local/share/hlssafe/logs"
	defaultEncoderCommand    = "ffmpeg"
	defaultPrimaryExtension  = ".mp4"
	defaultSubtitleExtension = ".vtt"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"

	// EncoderEnvVar names an ffmpeg location probed ahead of configured candidates.
	EncoderEnvVar = "HLSSAFE_FFMPEG"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Encoder: Encoder{
			Command:           defaultEncoderCommand,
			PrimaryExtension:  defaultPrimaryExtension,
			SubtitleExtension: defaultSubtitleExtension,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
