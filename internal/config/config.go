package config

type Config interface {
	EnvConfig
	CorsConfig
	GraphConfig
	AssistantConfig
	SearchConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Graph
	Assistant
	Search
}

func New() Config {
	return mainConfig{}
}
