package config

const (
	defaultAPIURL         = "https://data.cms.gov/provider-data/api/1/metastore/schemas/dataset/items"
	defaultTheme          = "Hospitals"
	defaultRequestTimeout = 30
	defaultDownloadDir    = "~/.local/share/harvest/datasets"
	defaultMetadataPath   = "~/.local/share/harvest/sync_metadata.json"
	defaultHistoryDBPath  = "~/.local/share/harvest/history.db"
	defaultConcurrency    = 4
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Catalog: Catalog{
			APIURL:         defaultAPIURL,
			Theme:          defaultTheme,
			RequestTimeout: defaultRequestTimeout,
		},
		Paths: Paths{
			DownloadDir:   defaultDownloadDir,
			MetadataPath:  defaultMetadataPath,
			HistoryDBPath: defaultHistoryDBPath,
		},
		Sync: Sync{
			Concurrency: defaultConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
