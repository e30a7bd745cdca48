package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infra-agent/backend/internal/requirements"
	"github.com/infra-agent/backend/internal/session"
)

func newRequirementsTestApp(t *testing.T) (*fiber.App, *session.Store, *requirements.Catalog) {
	t.Helper()

	catalog := requirements.NewCatalog(nil)
	sessions := session.NewStore(session.Config{}, nil)
	h := NewRequirementsHandler(catalog, sessions)

	app := fiber.New()
	app.Post("/requirements/answer", h.SubmitAnswer)
	return app, sessions, catalog
}

// startInterview installs a fresh serverless collection and returns the id
// of the first pending item.
func startInterview(t *testing.T, sessions *session.Store, catalog *requirements.Catalog, sessionID string) string {
	t.Helper()

	sess := sessions.GetOrCreate(sessionID)
	defer sessions.Release(sess)
	sess.Lock()
	defer sess.Unlock()

	col := requirements.NewCollection(sessionID, requirements.PatternServerless, "development", catalog, nil)
	sess.SetCollection(col)
	require.NotNil(t, col.CurrentItem())
	return col.CurrentItem().ID
}

func postAnswer(t *testing.T, app *fiber.App, body fiber.Map) (int, map[string]interface{}) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/requirements/answer", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestSubmitAnswer_RejectsMismatchedItemCoordinates(t *testing.T) {
	app, sessions, catalog := newRequirementsTestApp(t)
	pendingID := startInterview(t, sessions, catalog, "s1")

	status, body := postAnswer(t, app, fiber.Map{
		"session_id": "s1",
		"item_id":    "network_region",
		"answer":     "us-east-1",
	})

	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, pendingID, body["pending_item_id"])
	assert.Equal(t, "compute", body["pending_category"])
}

func TestSubmitAnswer_AcceptsMatchingCoordinates(t *testing.T) {
	app, sessions, catalog := newRequirementsTestApp(t)
	pendingID := startInterview(t, sessions, catalog, "s1")

	status, body := postAnswer(t, app, fiber.Map{
		"session_id": "s1",
		"category":   "compute",
		"item_id":    pendingID,
		"answer":     "api backend",
	})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "compute_traffic", body["next_item_id"])
}

func TestSubmitAnswer_StaleCoordinatesConflictAfterAdvance(t *testing.T) {
	app, sessions, catalog := newRequirementsTestApp(t)
	pendingID := startInterview(t, sessions, catalog, "s1")

	// First answer advances the interview past the item the form still shows.
	status, _ := postAnswer(t, app, fiber.Map{
		"session_id": "s1",
		"answer":     "api backend",
	})
	require.Equal(t, fiber.StatusOK, status)

	status, body := postAnswer(t, app, fiber.Map{
		"session_id": "s1",
		"item_id":    pendingID,
		"answer":     "batch processing",
	})

	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "compute_traffic", body["pending_item_id"])
}

func TestSubmitAnswer_UnknownSessionReturnsNotFound(t *testing.T) {
	app, _, _ := newRequirementsTestApp(t)

	status, _ := postAnswer(t, app, fiber.Map{
		"session_id": "nobody",
		"answer":     "api backend",
	})

	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSubmitAnswer_NoActiveCollectionConflicts(t *testing.T) {
	app, sessions, _ := newRequirementsTestApp(t)
	sessions.Release(sessions.GetOrCreate("idle"))

	status, _ := postAnswer(t, app, fiber.Map{
		"session_id": "idle",
		"answer":     "api backend",
	})

	assert.Equal(t, fiber.StatusConflict, status)
}
