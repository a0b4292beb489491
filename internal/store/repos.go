package store

import (
	"fmt"
	"net/url"

	"github.com/NoCodeNode/scamometer/internal/analysis"
	"github.com/NoCodeNode/scamometer/internal/batch"
)

const (
	analysisPrefix = "analysis::"
	batchQueueKey  = "batch::queue"
	batchStatusKey = "batch::status"
	whitelistKey   = "whitelist"
	blacklistKey   = "blacklist"
	apiKeyKey      = "apiKey"
	modelNameKey   = "modelName"
	webhookURLKey  = "webhookUrl"
	webhookAuthKey = "webhookAuth"
	webhookOnKey   = "webhookEnabled"
)

// Analyses persists per-URL analysis results
type Analyses struct {
	s *Store
}

// Analyses returns the analysis-result repository
func (s *Store) Analyses() *Analyses {
	return &Analyses{s: s}
}

// analysisKey normalizes a URL to its storage key. Query string and fragment
// are dropped so revisits of the same page hit the same record.
func analysisKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	return analysisPrefix + u.Scheme + "://" + u.Host + u.Path, nil
}

// Get loads the stored result for rawURL
func (a *Analyses) Get(rawURL string) (*analysis.Result, bool, error) {
	key, err := analysisKey(rawURL)
	if err != nil {
		return nil, false, err
	}

	var result analysis.Result

	ok, err := a.s.get(key, &result)
	if err != nil || !ok {
		return nil, false, err
	}

	return &result, true, nil
}

// Put stores the result for rawURL, replacing any previous record
func (a *Analyses) Put(rawURL string, result *analysis.Result) error {
	key, err := analysisKey(rawURL)
	if err != nil {
		return err
	}

	return a.s.put(key, result)
}

// Batches persists the batch queue and its progress snapshot
type Batches struct {
	s *Store
}

// Batches returns the batch-state repository
func (s *Store) Batches() *Batches {
	return &Batches{s: s}
}

// Load reads the persisted job, reporting whether one exists
func (b *Batches) Load() (*batch.Job, bool, error) {
	var job batch.Job

	ok, err := b.s.get(batchQueueKey, &job)
	if err != nil || !ok {
		return nil, false, err
	}

	return &job, true, nil
}

// Save writes the job
func (b *Batches) Save(job *batch.Job) error {
	return b.s.put(batchQueueKey, job)
}

// SaveStatus writes the progress snapshot
func (b *Batches) SaveStatus(snapshot *batch.Snapshot) error {
	return b.s.put(batchStatusKey, snapshot)
}

// LoadStatus reads the persisted progress snapshot, reporting whether one exists
func (b *Batches) LoadStatus() (*batch.Snapshot, bool, error) {
	var snapshot batch.Snapshot

	ok, err := b.s.get(batchStatusKey, &snapshot)
	if err != nil || !ok {
		return nil, false, err
	}

	return &snapshot, true, nil
}

// Lists persists the user-maintained domain lists
type Lists struct {
	s *Store
}

// Lists returns the domain-list repository
func (s *Store) Lists() *Lists {
	return &Lists{s: s}
}

// Whitelist returns the trusted hostnames; absent means empty
func (l *Lists) Whitelist() ([]string, error) {
	return l.load(whitelistKey)
}

// Blacklist returns the blocked hostnames; absent means empty
func (l *Lists) Blacklist() ([]string, error) {
	return l.load(blacklistKey)
}

// SetWhitelist replaces the trusted hostnames
func (l *Lists) SetWhitelist(hosts []string) error {
	return l.s.put(whitelistKey, hosts)
}

// SetBlacklist replaces the blocked hostnames
func (l *Lists) SetBlacklist(hosts []string) error {
	return l.s.put(blacklistKey, hosts)
}

func (l *Lists) load(key string) ([]string, error) {
	var hosts []string

	if _, err := l.s.get(key, &hosts); err != nil {
		return nil, err
	}

	return hosts, nil
}

// Settings persists model credentials and webhook configuration
type Settings struct {
	s *Store
}

// Settings returns the settings repository
func (s *Store) Settings() *Settings {
	return &Settings{s: s}
}

// APIKey returns the stored scoring-model key; absent means empty
func (st *Settings) APIKey() (string, error) {
	return st.loadString(apiKeyKey)
}

// SetAPIKey stores the scoring-model key. An empty key clears it.
func (st *Settings) SetAPIKey(key string) error {
	if key == "" {
		return st.s.remove(apiKeyKey)
	}

	return st.s.put(apiKeyKey, key)
}

// ModelName returns the stored model override; absent means empty
func (st *Settings) ModelName() (string, error) {
	return st.loadString(modelNameKey)
}

// SetModelName stores the model override
func (st *Settings) SetModelName(name string) error {
	return st.s.put(modelNameKey, name)
}

// Webhook returns the completion-webhook settings
func (st *Settings) Webhook() (url, auth string, enabled bool, err error) {
	if url, err = st.loadString(webhookURLKey); err != nil {
		return "", "", false, err
	}

	if auth, err = st.loadString(webhookAuthKey); err != nil {
		return "", "", false, err
	}

	if _, err = st.s.get(webhookOnKey, &enabled); err != nil {
		return "", "", false, err
	}

	return url, auth, enabled, nil
}

// SetWebhook stores the completion-webhook settings
func (st *Settings) SetWebhook(url, auth string, enabled bool) error {
	if err := st.s.put(webhookURLKey, url); err != nil {
		return err
	}

	if err := st.s.put(webhookAuthKey, auth); err != nil {
		return err
	}

	return st.s.put(webhookOnKey, enabled)
}

func (st *Settings) loadString(key string) (string, error) {
	var value string

	if _, err := st.s.get(key, &value); err != nil {
		return "", err
	}

	return value, nil
}
