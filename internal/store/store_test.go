package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NoCodeNode/scamometer/internal/analysis"
	"github.com/NoCodeNode/scamometer/internal/batch"
	"github.com/NoCodeNode/scamometer/internal/model"
)

var (
	_ analysis.ResultStore = (*Analyses)(nil)
	_ analysis.Lists       = (*Lists)(nil)
	_ analysis.Credentials = (*Settings)(nil)
	_ batch.JobStore       = (*Batches)(nil)
)

func TestAnalysesRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	repo := s.Analyses()

	_, ok, err := repo.Get("https://example.com/checkout")
	require.NoError(t, err)
	require.False(t, ok)

	result := &analysis.Result{
		URL:     "https://example.com/checkout",
		Verdict: model.Verdict{Verdict: "Looks risky", Scamometer: 62, Reason: "new domain"},
	}
	require.NoError(t, repo.Put(result.URL, result))

	got, ok, err := repo.Get("https://example.com/checkout")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, result.Verdict, got.Verdict)
}

func TestAnalysisKeyIgnoresQueryAndFragment(t *testing.T) {
	key, err := analysisKey("https://example.com/login?next=/home#top")
	require.NoError(t, err)
	require.Equal(t, "analysis::https://example.com/login", key)

	same, err := analysisKey("https://example.com/login")
	require.NoError(t, err)
	require.Equal(t, key, same)

	_, err = analysisKey("not a url")
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Lists().SetWhitelist([]string{"example.com", "trusted.test"}))
	require.NoError(t, s.Settings().SetAPIKey("k-123"))

	reopened, err := Open(dir)
	require.NoError(t, err)

	hosts, err := reopened.Lists().Whitelist()
	require.NoError(t, err)
	require.Equal(t, []string{"example.com", "trusted.test"}, hosts)

	key, err := reopened.Settings().APIKey()
	require.NoError(t, err)
	require.Equal(t, "k-123", key)
}

func TestListsDefaultEmpty(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	white, err := s.Lists().Whitelist()
	require.NoError(t, err)
	require.Empty(t, white)

	black, err := s.Lists().Blacklist()
	require.NoError(t, err)
	require.Empty(t, black)
}

func TestSettingsClearAPIKey(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	settings := s.Settings()
	require.NoError(t, settings.SetAPIKey("k-123"))
	require.NoError(t, settings.SetAPIKey(""))

	key, err := settings.APIKey()
	require.NoError(t, err)
	require.Empty(t, key)
}

func TestWebhookSettingsRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	settings := s.Settings()

	url, auth, enabled, err := settings.Webhook()
	require.NoError(t, err)
	require.Empty(t, url)
	require.Empty(t, auth)
	require.False(t, enabled)

	require.NoError(t, settings.SetWebhook("https://hooks.test/batch", "Bearer tok", true))

	url, auth, enabled, err = settings.Webhook()
	require.NoError(t, err)
	require.Equal(t, "https://hooks.test/batch", url)
	require.Equal(t, "Bearer tok", auth)
	require.True(t, enabled)
}

func TestBatchesRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	repo := s.Batches()

	_, ok, err := repo.Load()
	require.NoError(t, err)
	require.False(t, ok)

	job := &batch.Job{
		ID:     "job-1",
		Status: batch.JobPaused,
		Items: []*batch.Item{
			{URL: "http://a.test", Index: 0, Status: batch.StatusCompleted},
			{URL: "http://b.test", Index: 1, Status: batch.StatusPending},
		},
	}
	require.NoError(t, repo.Save(job))
	require.NoError(t, repo.SaveStatus(&batch.Snapshot{Status: string(batch.JobPaused), Current: 1, Total: 2, Percentage: 50}))

	got, ok, err := repo.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, batch.JobPaused, got.Status)
	require.Len(t, got.Items, 2)
	require.Equal(t, batch.StatusCompleted, got.Items[0].Status)
}

func TestOpenRejectsCorruptState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFile), []byte("{not json"), 0o600))

	_, err := Open(dir)
	require.ErrorIs(t, err, ErrCorruptState)
}
