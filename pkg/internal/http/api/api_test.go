package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/pollcast/pollcast/pkg/internal/database"
	"github.com/pollcast/pollcast/pkg/internal/models"
	"github.com/pollcast/pollcast/pkg/internal/queue"
	"github.com/pollcast/pollcast/pkg/internal/services"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "pollcast.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.RunMigration(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	polls := services.NewPollService(db, nil)
	dispatcher := queue.NewDispatcher(services.NewAggregator(db, polls), 16, 2)
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)

	app := fiber.New()
	NewController(
		services.NewUserService(db),
		polls,
		services.NewVoteService(db, dispatcher),
	).MapAPIs(app, "/")

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)

	return resp.StatusCode, decoded
}

func createUser(t *testing.T, app *fiber.App, username string) uint {
	t.Helper()

	code, body := doJSON(t, app, "POST", "/users", map[string]any{"username": username})
	if code != http.StatusOK {
		t.Fatalf("expected 200 creating user, got %d", code)
	}
	return uint(body["id"].(float64))
}

func createPoll(t *testing.T, app *fiber.App, creatorID uint, expiresIn time.Duration) uint {
	t.Helper()

	code, body := doJSON(t, app, "POST", "/polls", map[string]any{
		"question":        "Coffee or tea?",
		"options":         map[string]string{"a": "Coffee", "b": "Tea"},
		"expiration_time": time.Now().Add(expiresIn).Format(time.RFC3339),
		"creator_id":      creatorID,
	})
	if code != http.StatusCreated {
		t.Fatalf("expected 201 creating poll, got %d", code)
	}
	return uint(body["id"].(float64))
}

func TestUserEndpoint(t *testing.T) {
	app, _ := setupApp(t)

	code, body := doJSON(t, app, "POST", "/users", map[string]any{"username": "alice"})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["username"] != "alice" {
		t.Errorf("expected username alice, got %v", body["username"])
	}
	if body["id"] == nil || body["created_at"] == nil {
		t.Errorf("response should carry id and created_at, got %v", body)
	}

	if code, _ := doJSON(t, app, "POST", "/users", map[string]any{"username": "alice"}); code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", code)
	}

	code, body = doJSON(t, app, "POST", "/users", map[string]any{})
	if code != http.StatusOK {
		t.Fatalf("expected 200 for generated username, got %d", code)
	}
	if body["username"] == "" {
		t.Error("blank request should generate a username")
	}
}

func TestPollCreationValidation(t *testing.T) {
	app, _ := setupApp(t)
	creator := createUser(t, app, "creator")

	expiry := time.Now().Add(time.Hour).Format(time.RFC3339)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing fields", map[string]any{"question": "Q?"}, http.StatusBadRequest},
		{"single option", map[string]any{
			"question":        "Q?",
			"options":         map[string]string{"a": "A"},
			"expiration_time": expiry,
			"creator_id":      creator,
		}, http.StatusBadRequest},
		{"empty question", map[string]any{
			"question":        "",
			"options":         map[string]string{"a": "A", "b": "B"},
			"expiration_time": expiry,
			"creator_id":      creator,
		}, http.StatusBadRequest},
		{"valid", map[string]any{
			"question":        "Q?",
			"options":         map[string]string{"a": "A", "b": "B"},
			"expiration_time": expiry,
			"creator_id":      creator,
		}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _ := doJSON(t, app, "POST", "/polls", tt.body); code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, code)
			}
		})
	}
}

func TestVoteScenario(t *testing.T) {
	app, db := setupApp(t)

	voter := createUser(t, app, "user1")
	creator := createUser(t, app, "owner")
	pollID := createPoll(t, app, creator, time.Hour)

	votePath := fmt.Sprintf("/polls/%d/vote", pollID)

	code, _ := doJSON(t, app, "POST", votePath, map[string]any{
		"voter_id":        voter,
		"option_selected": "a",
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200 casting vote, got %d", code)
	}

	// Aggregation is asynchronous; wait for the counter to settle.
	deadline := time.Now().Add(3 * time.Second)
	for {
		var poll models.Poll
		if err := db.First(&poll, pollID).Error; err != nil {
			t.Fatalf("failed to reload poll: %v", err)
		}
		if poll.TotalVotes == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("total_votes never settled to 1, got %d", poll.TotalVotes)
		}
		time.Sleep(10 * time.Millisecond)
	}

	code, body := doJSON(t, app, "GET", fmt.Sprintf("/polls/%d", pollID), nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200 reading poll, got %d", code)
	}
	counts, _ := body["vote_counts"].(map[string]any)
	if counts["a"] != float64(1) {
		t.Errorf("expected vote_counts {a:1}, got %v", body["vote_counts"])
	}
	if body["total_votes"] != float64(1) {
		t.Errorf("expected total_votes 1, got %v", body["total_votes"])
	}

	// Same voter again.
	if code, _ := doJSON(t, app, "POST", votePath, map[string]any{
		"voter_id":        voter,
		"option_selected": "b",
	}); code != http.StatusConflict {
		t.Errorf("expected 409 for a second vote, got %d", code)
	}

	// Missing fields.
	if code, _ := doJSON(t, app, "POST", votePath, map[string]any{}); code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", code)
	}

	// Unknown voter.
	if code, _ := doJSON(t, app, "POST", votePath, map[string]any{
		"voter_id":        9999,
		"option_selected": "a",
	}); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown voter, got %d", code)
	}

	// Unknown poll.
	if code, _ := doJSON(t, app, "POST", "/polls/9999/vote", map[string]any{
		"voter_id":        voter,
		"option_selected": "a",
	}); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown poll, got %d", code)
	}
}

func TestVoteOnExpiredPoll(t *testing.T) {
	app, _ := setupApp(t)

	voter := createUser(t, app, "user1")
	creator := createUser(t, app, "owner")
	pollID := createPoll(t, app, creator, -time.Hour)

	code, _ := doJSON(t, app, "POST", fmt.Sprintf("/polls/%d/vote", pollID), map[string]any{
		"voter_id":        voter,
		"option_selected": "a",
	})
	if code != http.StatusBadRequest {
		t.Errorf("expected 400 voting on an expired poll, got %d", code)
	}
}

func TestListPollsEndpoint(t *testing.T) {
	app, _ := setupApp(t)

	creator := createUser(t, app, "owner")
	createPoll(t, app, creator, time.Hour)
	createPoll(t, app, creator, 48*time.Hour)

	if code, _ := doJSON(t, app, "GET", "/polls", nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 without query parameters, got %d", code)
	}

	expiresBefore := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	code, body := doJSON(t, app, "GET", fmt.Sprintf("/polls?owner=%d&expiresBefore=%s", creator, expiresBefore), nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200 listing polls, got %d", code)
	}
	polls, _ := body["polls"].([]any)
	if len(polls) != 1 {
		t.Errorf("expected 1 poll within 24h, got %d", len(polls))
	}
}

func TestDeletePollEndpoint(t *testing.T) {
	app, _ := setupApp(t)

	creator := createUser(t, app, "owner")
	stranger := createUser(t, app, "stranger")
	pollID := createPoll(t, app, creator, time.Hour)

	path := fmt.Sprintf("/polls/%d", pollID)

	if code, _ := doJSON(t, app, "DELETE", path, map[string]any{}); code != http.StatusBadRequest {
		t.Errorf("expected 400 without creator_id, got %d", code)
	}
	if code, _ := doJSON(t, app, "DELETE", path, map[string]any{"creator_id": stranger}); code != http.StatusForbidden {
		t.Errorf("expected 403 for non-creator, got %d", code)
	}
	if code, _ := doJSON(t, app, "GET", path, nil); code != http.StatusOK {
		t.Errorf("rejected deletion must leave the poll readable, got %d", code)
	}
	if code, _ := doJSON(t, app, "DELETE", path, map[string]any{"creator_id": creator}); code != http.StatusOK {
		t.Errorf("expected 200 for creator deletion, got %d", code)
	}
	if code, _ := doJSON(t, app, "DELETE", path, map[string]any{"creator_id": creator}); code != http.StatusNotFound {
		t.Errorf("expected 404 deleting a missing poll, got %d", code)
	}
	if code, _ := doJSON(t, app, "GET", path, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 reading a deleted poll, got %d", code)
	}
}
