package sdk

// AskRequest is one question to the pipeline.
type AskRequest struct {
	Question string `json:"question"`
	// K is how many chunks to retrieve; zero uses the server default.
	K int `json:"k,omitempty"`
	// Generator selects a backend by name; empty uses the server default.
	Generator string `json:"generator,omitempty"`
	// Model overrides the backend's default model.
	Model string `json:"model,omitempty"`
}

// Source is one document that contributed to an answer.
type Source struct {
	Index        int    `json:"index"`
	DocumentName string `json:"document_name"`
	SourcePath   string `json:"source_path"`
	ChunkCount   int    `json:"chunk_count"`
}

// Answer is a grounded answer with its source list.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// IndexStatus describes the server's index state.
type IndexStatus struct {
	Loaded   bool   `json:"loaded"`
	Entries  int    `json:"entries"`
	Path     string `json:"path"`
	Embedder string `json:"embedder,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Provider is one generation backend the server offers.
type Provider struct {
	Name    string   `json:"name"`
	Models  []string `json:"models,omitempty"`
	Default bool     `json:"default"`
}

// Providers lists the server's generation backends.
type Providers struct {
	Default   string     `json:"default"`
	Providers []Provider `json:"providers"`
}

// Health is the server health report.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
