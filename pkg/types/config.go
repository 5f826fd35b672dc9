package types

import "time"

// HTTPConfig holds shared HTTP settings used by the transfer client.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "physionet-sample/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Credentials holds PhysioNet account credentials for credentialed
// databases. Open-access databases need none.
type Credentials struct {
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// Empty reports whether no username is set.
func (c Credentials) Empty() bool {
	return c.Username == ""
}

// PhysioNetConfig holds settings for the PhysioNet transfer client.
type PhysioNetConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the PhysioNet host (default "https://physionet.org").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Version pins the database version (e.g. "1.0.0"). Empty resolves the
	// latest version published on the server.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Overwrite replaces files that already exist locally. Off by default.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	// MaxRetries is the number of retries on HTTP 429/503 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	Credentials Credentials `json:"-" yaml:"-"`
}

// BatchConfig holds the inputs of one batch run.
type BatchConfig struct {
	// Collection is the PhysioNet database name (e.g. "eegmmidb").
	Collection string `json:"collection" yaml:"collection"`

	// Subjects lists the subject directories to fetch, in order.
	// Duplicates are fetched independently.
	Subjects []string `json:"subjects" yaml:"subjects"`

	// OutDir is the destination root; each subject gets OutDir/<subject>.
	OutDir string `json:"out_dir" yaml:"out_dir"`
}
