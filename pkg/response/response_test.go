package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func testCtx() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestOK(t *testing.T) {
	c, w := testCtx()
	c.Set("request_id", "req-1")

	OK(c, http.StatusCreated, map[string]string{"id": "u1"}, "created")

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	var got APIResponse[map[string]string]
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Success || got.Message != "created" || got.RequestID != "req-1" {
		t.Fatalf("unexpected envelope %+v", got)
	}
	if got.Data["id"] != "u1" {
		t.Fatalf("data = %v", got.Data)
	}
}

func TestOK_ZeroStatusDefaults(t *testing.T) {
	c, w := testCtx()
	OK[any](c, 0, nil, "ok")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestFail_BuildsWithoutWriting(t *testing.T) {
	c, w := testCtx()

	resp := Fail[any](c, http.StatusUnauthorized, "missing bearer token", nil)

	if resp.Status != http.StatusUnauthorized || resp.Success {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	if w.Body.Len() != 0 {
		t.Fatal("Fail must not write the response body")
	}
}

func TestError_WritesEnvelope(t *testing.T) {
	c, w := testCtx()

	Error[any](c, http.StatusBadRequest, "validation failed", map[string]string{"email": "is required"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var got APIResponse[any]
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Success || got.Message != "validation failed" || got.Error == nil {
		t.Fatalf("unexpected envelope %+v", got)
	}
}
