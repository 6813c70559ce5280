package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/scifind/data/db/papers.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/scifind/data/indices/bleve"
	}
	if cfg.Model.Endpoint == "" {
		cfg.Model.Endpoint = "http://localhost:8000/search"
	}
	if cfg.Model.TimeoutSeconds == 0 {
		cfg.Model.TimeoutSeconds = 30
	}
	if cfg.Model.HealthTimeoutSeconds == 0 {
		cfg.Model.HealthTimeoutSeconds = 5
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.MaxSearchTermLength == 0 {
		cfg.Search.MaxSearchTermLength = 500
	}
	if cfg.Search.CandidatePool == 0 {
		cfg.Search.CandidatePool = 100
	}
	if cfg.Search.MaxConcurrentLookups == 0 {
		cfg.Search.MaxConcurrentLookups = 8
	}
	if cfg.Search.FusionPolicy == "" {
		cfg.Search.FusionPolicy = FusionModel
	}
}
