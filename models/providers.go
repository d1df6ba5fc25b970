package models

type ProvidersGetResponse struct {
	Chat      []Provider `json:"chat"`
	Embedding []Provider `json:"embedding"`
}

type Provider struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	RequiresAPIKey bool    `json:"requiresApiKey"`
	Models         []Model `json:"models"`
}

type Model struct {
	ID         string `json:"id"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// Filter returns the providers with the given ID.
func (p ProvidersGetResponse) Filter(id string) (filtered ProvidersGetResponse, ok bool) {
	for _, c := range p.Chat {
		if c.ID == id {
			filtered.Chat = append(filtered.Chat, c)
		}
	}
	for _, e := range p.Embedding {
		if e.ID == id {
			filtered.Embedding = append(filtered.Embedding, e)
		}
	}
	return filtered, len(filtered.Chat) > 0 || len(filtered.Embedding) > 0
}
