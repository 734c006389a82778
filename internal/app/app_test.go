package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/handlers"
	"github.com/ternarybob/scribe/internal/services/llm"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.Path = t.TempDir()
	cfg.Scheduler.Enabled = false
	cfg.Jira.BaseURL = "http://jira.invalid"
	cfg.Jira.Project = "AI"
	cfg.Confluence.BaseURL = "http://wiki.invalid"
	cfg.Confluence.Spaces = []string{"ENG"}
	return cfg
}

func newTestApp(t *testing.T, cfg *common.Config) *App {
	t.Helper()
	application, err := New(cfg, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { application.Close() })
	return application
}

func post(handler http.HandlerFunc, target string) (int, map[string]interface{}) {
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, target, nil))
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec.Code, body
}

func jobNames(application *App) []string {
	var names []string
	for name := range application.SchedulerService.GetAllJobStatuses() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestNew_WithoutLLMKeyDisablesModelServices(t *testing.T) {
	application := newTestApp(t, testConfig(t))

	assert.NotNil(t, application.JiraClient)
	assert.Nil(t, application.Chaser)
	assert.Nil(t, application.Progress)
	assert.Nil(t, application.ConfluencePipeline)
	assert.Nil(t, application.FollowupsHandler)
	assert.Empty(t, jobNames(application))

	for _, operation := range []string{handlers.OperationReingest, handlers.OperationChase, handlers.OperationProgress} {
		assert.ErrorIs(t, application.Unavailable(operation, "not configured"), llm.ErrLLMNotConfigured, operation)
	}

	operations := application.OperationsHandler
	for target, handler := range map[string]http.HandlerFunc{
		"/chase":     operations.ChaseHandler,
		"/progress":  operations.ProgressHandler,
		"/reingress": operations.ReingestHandler,
	} {
		code, body := post(handler, target)
		assert.Equal(t, http.StatusServiceUnavailable, code, target)
		assert.Contains(t, body["error"], llm.ErrLLMNotConfigured.Error(), target)
	}
}

func TestNew_ClaudeWithoutGeminiKeepsJira(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.DefaultProvider = common.LLMProviderClaude
	cfg.Claude.APIKey = "sk-test"
	application := newTestApp(t, cfg)

	assert.NotNil(t, application.Chaser)
	assert.NotNil(t, application.Progress)
	assert.Nil(t, application.ConfluencePipeline)
	assert.Equal(t, []string{common.JobJiraChase, common.JobJiraProgress}, jobNames(application))
	assert.ErrorIs(t, application.Unavailable(handlers.OperationReingest, "not configured"), llm.ErrLLMNotConfigured)
}

func TestNew_WithLLMKeyRegistersJobs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gemini.APIKey = "test-key"
	application := newTestApp(t, cfg)

	assert.NotNil(t, application.Chaser)
	assert.NotNil(t, application.Progress)
	assert.NotNil(t, application.ConfluencePipeline)
	assert.Nil(t, application.SharePointPipeline)
	assert.Equal(t, []string{common.JobConfluenceReingest, common.JobJiraChase, common.JobJiraProgress}, jobNames(application))

	assert.EqualError(t, application.Unavailable(handlers.OperationChase, "jira is not configured"), "jira is not configured")
}
