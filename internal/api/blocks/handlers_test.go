package blocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appdb "github.com/masgolf/teetime/internal/db"
	"github.com/masgolf/teetime/internal/testutil"
)

func setupTest(t *testing.T) *appdb.DB {
	t.Helper()

	database := testutil.NewTestDB(t)
	prev := queries
	queries = database.Queries
	t.Cleanup(func() { queries = prev })
	return database
}

func TestHandleBlockCreateAndList(t *testing.T) {
	setupTest(t)

	body := `{"date":"2026-03-12","time":"14:00","duration":120,"is_virtual":false}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/blocks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	HandleBlockCreate(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created appdb.BookingBlock
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Time != "14:00" || created.Duration != 120 || created.IsVirtual {
		t.Errorf("unexpected block: %+v", created)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/blocks?date=2026-03-12", nil)
	w = httptest.NewRecorder()
	HandleBlocksList(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var listed []appdb.BookingBlock
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("listed = %+v, want the created block", listed)
	}
}

func TestHandleBlockCreate_Validation(t *testing.T) {
	setupTest(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing date", `{"time":"14:00"}`},
		{"bad date", `{"date":"tomorrow","time":"14:00"}`},
		{"bad time", `{"date":"2026-03-12","time":"99:99"}`},
		{"negative duration", `{"date":"2026-03-12","time":"14:00","duration":-30}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/blocks", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			HandleBlockCreate(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandleBlocksList_EmptyDate(t *testing.T) {
	setupTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/blocks?date=2026-03-12", nil)
	w := httptest.NewRecorder()
	HandleBlocksList(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

func TestHandleBlockDelete(t *testing.T) {
	database := setupTest(t)

	created, err := database.Queries.CreateBlock(t.Context(), appdb.CreateBlockParams{
		Date: "2026-03-12", Time: "14:00", Duration: 60,
	})
	if err != nil {
		t.Fatalf("seed block: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/blocks/1", nil)
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	HandleBlockDelete(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	remaining, err := database.Queries.ListBlocksByDate(t.Context(), created.Date)
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected no blocks after delete, got %d", len(remaining))
	}
}

func TestHandleBlockDelete_NotFound(t *testing.T) {
	setupTest(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/blocks/42", nil)
	req.SetPathValue("id", "42")
	w := httptest.NewRecorder()
	HandleBlockDelete(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
