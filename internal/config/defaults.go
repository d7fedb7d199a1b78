package config

// IndexDimensions is the fixed vector dimension of the index. All
// embedding producers are conformed to this size.
const IndexDimensions = 1024

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "awase_documents"
	}
	if cfg.Metadata.DatabasePath == "" {
		cfg.Metadata.DatabasePath = "/usr/local/var/awase/data/db/files.db"
	}
	if cfg.Blob.RootDir == "" {
		cfg.Blob.RootDir = "/usr/local/var/awase/data/blobs"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/awase/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = 1000
	}
	if cfg.Pipeline.ChunkOverlap == 0 {
		cfg.Pipeline.ChunkOverlap = 200
	}
	if cfg.Pipeline.ChunkThreshold == 0 {
		cfg.Pipeline.ChunkThreshold = 2000
	}
	if cfg.Pipeline.MaxConcurrency == 0 {
		cfg.Pipeline.MaxConcurrency = 4
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.DenseWeight == 0 {
		cfg.Search.DenseWeight = 0.7
	}
	if cfg.Search.SparseWeight == 0 {
		cfg.Search.SparseWeight = 0.3
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx", ".pptx"}
	}
}
