package config

// AssistantConfig carries the Azure OpenAI settings used by the chat agent.
type AssistantConfig interface {
	GetOpenAIEndpoint() string
	GetOpenAIAPIKey() string
	GetOpenAIDeployment() string
	GetOpenAIAPIVersion() string
}

type Assistant struct{}

var _ AssistantConfig = Assistant{}

func (Assistant) GetOpenAIEndpoint() string {
	return GetEnv("AZURE_OPENAI_ENDPOINT", "")
}

func (Assistant) GetOpenAIAPIKey() string {
	return GetEnv("AZURE_OPENAI_API_KEY", "")
}

func (Assistant) GetOpenAIDeployment() string {
	return GetEnv("AZURE_OPENAI_DEPLOYMENT_NAME_LLM", "")
}

func (Assistant) GetOpenAIAPIVersion() string {
	return GetEnv("AZURE_OPENAI_API_VERSION_LLM", "2024-06-01")
}
