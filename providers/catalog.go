package providers

import "github.com/a-h/chatrag/models"

// Catalog lists the providers the server can be configured with, and the
// models commonly used with them.
var Catalog = models.ProvidersGetResponse{
	Chat: []models.Provider{
		{
			ID: ChatOpenAI, Name: "OpenAI", RequiresAPIKey: true,
			Models: []models.Model{{ID: "gpt-4o-mini"}, {ID: "gpt-4o"}},
		},
		{
			ID: ChatAnthropic, Name: "Anthropic", RequiresAPIKey: true,
			Models: []models.Model{{ID: "claude-3-5-haiku-latest"}, {ID: "claude-3-5-sonnet-latest"}},
		},
		{
			ID: ChatGoogleAI, Name: "Google AI", RequiresAPIKey: true,
			Models: []models.Model{{ID: "gemini-1.5-flash"}, {ID: "gemini-1.5-pro"}},
		},
		{
			ID: ChatNVIDIA, Name: "NVIDIA", RequiresAPIKey: true,
			Models: []models.Model{{ID: "meta/llama-3.1-8b-instruct"}, {ID: "meta/llama-3.1-70b-instruct"}},
		},
		{
			ID: ChatAzure, Name: "Azure OpenAI", RequiresAPIKey: true,
			Models: []models.Model{{ID: "gpt-4o-mini"}},
		},
		{
			ID: string(ModeLocal), Name: "Ollama",
			Models: []models.Model{{ID: "mistral-nemo"}, {ID: "llama3.2"}},
		},
	},
	Embedding: []models.Provider{
		{
			ID: EmbeddingOllama, Name: "Ollama",
			Models: []models.Model{{ID: "nomic-embed-text", Dimensions: 768}, {ID: "all-minilm", Dimensions: 384}},
		},
		{
			ID: EmbeddingOpenAI, Name: "OpenAI", RequiresAPIKey: true,
			Models: []models.Model{
				{ID: "text-embedding-3-small", Dimensions: 1536},
				{ID: "text-embedding-3-large", Dimensions: 3072},
				{ID: "text-embedding-ada-002", Dimensions: 1536},
			},
		},
		{
			ID: EmbeddingGoogle, Name: "Google AI", RequiresAPIKey: true,
			Models: []models.Model{{ID: "text-embedding-004", Dimensions: 768}, {ID: "embedding-001", Dimensions: 768}},
		},
	},
}
