package domain

// Config stores local defaults applied when flags are not given.
type Config struct {
	Indent      *int   `json:"indent,omitempty"`
	Concurrency bool   `json:"concurrency"`
	Format      string `json:"format,omitempty"`
	Precision   *int   `json:"precision,omitempty"`
	Jobs        int    `json:"jobs,omitempty"`
	LogLevel    string `json:"log_level,omitempty"`
	LogFormat   string `json:"log_format,omitempty"`
}
