package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			Workspace: "~/.tripbot/workspace",
			LogLevel:  "info",
			Language:  "English",
		},
		Generation: GenerationConfig{
			APIKey:         "${GEMINI_API_KEY:-}",
			TimeoutSeconds: 60,
		},
		Audio: AudioConfig{
			Enabled:           true,
			DefaultSampleRate: 24000,
			OutputDir:         "~/.tripbot/audio",
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "Markdown",
			},
			CLI: CLIConfig{
				Enabled: true,
			},
		},
		Memory: MemoryConfig{
			Enabled:              true,
			DBPath:               "~/.tripbot/transcripts.db",
			MaxHistoryPerSession: 100,
		},
		Templates: TemplatesConfig{},
	}
}
