package config

// SearchConfig carries the Azure AI Search settings used by the knowledge
// retriever and the document indexer.
type SearchConfig interface {
	GetSearchEndpoint() string
	GetSearchAPIKey() string
	GetSearchIndexName() string
	GetSearchAPIVersion() string
}

type Search struct{}

var _ SearchConfig = Search{}

func (Search) GetSearchEndpoint() string {
	return GetEnv("AZURE_AI_SEARCH_ENDPOINT", "")
}

func (Search) GetSearchAPIKey() string {
	return GetEnv("AZURE_AI_SEARCH_KEY", "")
}

func (Search) GetSearchIndexName() string {
	return GetEnv("AZURE_AI_SEARCH_INDEX_NAME", "hr-documents")
}

func (Search) GetSearchAPIVersion() string {
	return GetEnv("AZURE_AI_SEARCH_API_VERSION", "2024-07-01")
}
