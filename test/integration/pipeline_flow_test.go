package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ai-orchestrator-be/internal/bootstrap"
	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/dto"
	"ai-orchestrator-be/internal/pkg/serverutils"
	"ai-orchestrator-be/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

// apiResponse mirrors serverutils.Response with a raw Data payload so each
// test can decode the part it cares about.
type apiResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Error   *serverutils.ErrorBody `json:"error"`
}

// newLocalModelStub serves the Ollama surface the pipeline touches.
func newLocalModelStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models": [{"name": "llama3"}, {"name": "gemma:2b"}]}`))
		case "/api/chat":
			resp := map[string]interface{}{
				"model": "llama3",
				"message": map[string]string{
					"role":    "assistant",
					"content": `{"proposals": ["The scattering angle?", "The role of wavelength?", "Why not violet?"]}`,
				},
				"done": true,
			}
			json.NewEncoder(w).Encode(resp)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newCloudModelStub serves the OpenRouter surface the pipeline touches.
func newCloudModelStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-or-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/v1/chat/completions":
			content := "```json\n{\"header_tags\": [\"Physics\", \"physics\", \"optics\"], \"body_text\": \"Rayleigh scattering favors short wavelengths, so blue dominates the sky.\"}\n```"
			resp := map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": content}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		case "/v1/models":
			w.Write([]byte(`{"data": [
				{"id": "paid/model", "name": "Paid Model", "context_length": 8192, "pricing": {"prompt": "0.001", "completion": "0.002"}},
				{"id": "free/model", "name": "Free Model", "context_length": 4096, "pricing": {"prompt": "0", "completion": "0"}}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T) (*fiber.App, string) {
	t.Helper()

	localStub := newLocalModelStub(t)
	cloudStub := newCloudModelStub(t)
	notesDir := t.TempDir()

	t.Setenv("LOCAL_ENDPOINT", localStub.URL)
	t.Setenv("LOCAL_MODEL", "llama3")
	t.Setenv("LOCAL_TIMEOUT_SECONDS", "5")
	t.Setenv("PROPOSAL_COUNT", "3")
	t.Setenv("CLOUD_BASE_URL", cloudStub.URL)
	t.Setenv("CLOUD_API_KEY", "sk-or-test")
	t.Setenv("CLOUD_MODEL", "free/model")
	t.Setenv("CLOUD_TIMEOUT_SECONDS", "5")
	t.Setenv("NOTES_DIR", notesDir)
	t.Setenv("LOG_FILE_PATH", filepath.Join(t.TempDir(), "app.log"))

	cfg := config.Load()
	container := bootstrap.NewContainer(cfg)
	t.Cleanup(container.Orchestrator.Close)
	t.Cleanup(func() { container.Bus.Close() })

	srv := server.New(cfg, container)
	return srv.GetApp(), notesDir
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded apiResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func pollState(t *testing.T, app *fiber.App, want string) dto.PipelineStateResponse {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	var state dto.PipelineStateResponse
	for time.Now().Before(deadline) {
		status, resp := doRequest(t, app, "GET", "/api/pipeline/v1/state", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.NoError(t, json.Unmarshal(resp.Data, &state))
		if state.State == want {
			return state
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("pipeline never reached %s, stuck at %s", want, state.State)
	return state
}

func TestPipelineFlowEndToEnd(t *testing.T) {
	app, notesDir := newTestApp(t)

	t.Run("submit query", func(t *testing.T) {
		status, resp := doRequest(t, app, "POST", "/api/pipeline/v1/query",
			dto.SubmitQueryRequest{Text: "why is the sky blue"})
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, resp.Success)

		var data dto.SubmitQueryResponse
		assert.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, uint64(1), data.Seq)
	})

	t.Run("proposals arrive", func(t *testing.T) {
		state := pollState(t, app, "PROPOSALS_READY")
		assert.Len(t, state.Proposals, 3)
		assert.Equal(t, "The scattering angle?", state.Proposals[0].Text)
	})

	t.Run("select proposal", func(t *testing.T) {
		id := 1
		status, resp := doRequest(t, app, "POST", "/api/pipeline/v1/selection",
			dto.SelectProposalRequest{ProposalId: &id})
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, resp.Success)
	})

	t.Run("synthesis arrives with normalized tags", func(t *testing.T) {
		state := pollState(t, app, "SYNTHESIS_READY")
		if assert.NotNil(t, state.Synthesis) {
			assert.Contains(t, state.Synthesis.Body, "Rayleigh scattering")
			assert.Equal(t, []string{"physics", "optics"}, state.Synthesis.Tags)
		}
	})

	t.Run("save writes the note to disk", func(t *testing.T) {
		status, resp := doRequest(t, app, "POST", "/api/pipeline/v1/save", nil)
		assert.Equal(t, http.StatusOK, status)

		var data dto.SaveNoteResponse
		assert.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.True(t, strings.HasSuffix(data.File, ".md"))

		content, err := os.ReadFile(filepath.Join(notesDir, data.File))
		assert.NoError(t, err)
		document := string(content)
		assert.True(t, strings.HasPrefix(document, "---\n"))
		assert.Contains(t, document, "title: why is the sky blue")
		assert.Contains(t, document, "Rayleigh scattering")
	})

	t.Run("pipeline returns to idle", func(t *testing.T) {
		pollState(t, app, "IDLE")
	})
}

func TestPipelineRejectsInvalidIntents(t *testing.T) {
	app, _ := newTestApp(t)

	t.Run("empty query", func(t *testing.T) {
		status, resp := doRequest(t, app, "POST", "/api/pipeline/v1/query",
			dto.SubmitQueryRequest{Text: ""})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.False(t, resp.Success)
		if assert.NotNil(t, resp.Error) {
			assert.Equal(t, "INVALID_INPUT", resp.Error.Kind)
		}
	})

	t.Run("selection while idle", func(t *testing.T) {
		id := 0
		status, resp := doRequest(t, app, "POST", "/api/pipeline/v1/selection",
			dto.SelectProposalRequest{ProposalId: &id})
		assert.Equal(t, http.StatusConflict, status)
		if assert.NotNil(t, resp.Error) {
			assert.Equal(t, "INVALID_STATE", resp.Error.Kind)
		}
	})

	t.Run("save while idle", func(t *testing.T) {
		status, _ := doRequest(t, app, "POST", "/api/pipeline/v1/save", nil)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("cancel while idle is accepted", func(t *testing.T) {
		status, resp := doRequest(t, app, "POST", "/api/pipeline/v1/cancel", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, resp.Success)
	})
}

func TestModelCatalogEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	t.Run("local models", func(t *testing.T) {
		status, resp := doRequest(t, app, "GET", "/api/models/v1/local", nil)
		assert.Equal(t, http.StatusOK, status)

		var data dto.LocalModelsResponse
		assert.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, []string{"llama3", "gemma:2b"}, data.Models)
	})

	t.Run("cloud models sorted free first", func(t *testing.T) {
		status, resp := doRequest(t, app, "GET", "/api/models/v1/cloud", nil)
		assert.Equal(t, http.StatusOK, status)

		var models []struct {
			Id   string `json:"id"`
			Name string `json:"name"`
		}
		assert.NoError(t, json.Unmarshal(resp.Data, &models))
		if assert.Len(t, models, 2) {
			assert.Equal(t, "free/model", models[0].Id)
		}
	})
}
