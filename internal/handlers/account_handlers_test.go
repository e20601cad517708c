package handlers_test

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/fathima-sithara/newsroom-service/internal/services"
)

func multipartBody(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func (f *fixture) upload(t *testing.T, method, path, token, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, filename, contentType, data)
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestRegisterAndVerify(t *testing.T) {
	f := newFixture()
	resp := f.do(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"name": "Reader", "email": "reader@example.com", "password": "long-password", "phone": "+919876543210",
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	account := readJSON(t, resp)["data"].(map[string]any)["account"].(map[string]any)
	if _, leaked := account["password"]; leaked {
		t.Fatal("password leaked")
	}
	if len(f.accounts.registered) != 1 || f.accounts.registered[0].Phone != "+919876543210" {
		t.Fatalf("unexpected register input %+v", f.accounts.registered)
	}

	bad := f.do(t, http.MethodPost, "/api/v1/users/register", map[string]string{"name": "R", "email": "x", "password": "short"}, "")
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.StatusCode)
	}

	if resp := f.do(t, http.MethodPost, "/api/v1/users/verify-email", map[string]string{"email": "reader@example.com", "code": "12ab56"}, ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-numeric code: expected 400, got %d", resp.StatusCode)
	}
	f.accounts.err = services.ErrInvalidVerificationCode
	if resp := f.do(t, http.MethodPost, "/api/v1/users/verify-email", map[string]string{"email": "reader@example.com", "code": "123456"}, ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong code: expected 400, got %d", resp.StatusCode)
	}
	f.accounts.err = services.ErrAlreadyExists
	if resp := f.do(t, http.MethodPost, "/api/v1/users/register", map[string]string{"name": "Reader", "email": "reader@example.com", "password": "long-password"}, ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", resp.StatusCode)
	}
}

func TestMeAndUpdate(t *testing.T) {
	f := newFixture()
	resp := f.do(t, http.MethodGet, "/api/v1/me", nil, userToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if data := readJSON(t, resp)["data"].(map[string]any); data["email"] != "user@example.com" {
		t.Fatalf("unexpected me %v", data)
	}

	resp = f.do(t, http.MethodPatch, "/api/v1/me", map[string]string{"name": "New Name"}, userToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if f.accounts.profile.Name == nil || *f.accounts.profile.Name != "New Name" || f.accounts.profile.Bio != nil {
		t.Fatalf("unexpected profile update %+v", f.accounts.profile)
	}

	if resp := f.do(t, http.MethodGet, "/api/v1/me", nil, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", resp.StatusCode)
	}
}

func TestAvatarUpload(t *testing.T) {
	f := newFixture()
	resp := f.upload(t, http.MethodPut, "/api/v1/me/avatar", userToken, "me.png", "image/png", tinyPNG(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if f.accounts.profile.Avatar == nil || *f.accounts.profile.Avatar != "/api/v1/media/m1/url" {
		t.Fatalf("private bucket avatar should point at the url endpoint, got %v", f.accounts.profile.Avatar)
	}

	f.media.publicURL = "https://cdn.example/me.png"
	f.upload(t, http.MethodPut, "/api/v1/me/avatar", userToken, "me.png", "image/png", tinyPNG(t))
	if *f.accounts.profile.Avatar != "https://cdn.example/me.png" {
		t.Fatalf("public avatar url not stored: %v", *f.accounts.profile.Avatar)
	}

	resp = f.upload(t, http.MethodPut, "/api/v1/me/avatar", userToken, "doc.pdf", "application/pdf", []byte("%PDF-1.4"))
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("pdf avatar: expected 415, got %d", resp.StatusCode)
	}
}

func TestAdminAccountRoutes(t *testing.T) {
	f := newFixture()

	if resp := f.do(t, http.MethodGet, "/api/v1/authors", nil, authorToken); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("author listing authors: expected 403, got %d", resp.StatusCode)
	}
	resp := f.do(t, http.MethodGet, "/api/v1/authors?page=2&limit=5", nil, adminToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	page := readJSON(t, resp)["data"].(map[string]any)
	if page["page"] != float64(2) || page["limit"] != float64(5) {
		t.Fatalf("pagination not forwarded: %v", page)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/authors", map[string]string{"name": "Writer", "email": "w@example.com", "password": "long-password"}, adminToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}

	id := f.author.ID.Hex()
	if resp := f.do(t, http.MethodPatch, "/api/v1/authors/"+id+"/status", map[string]bool{"isActive": false}, adminToken); resp.StatusCode != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodPatch, "/api/v1/authors/"+id+"/status", map[string]any{}, adminToken); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty status: expected 400, got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodPost, "/api/v1/authors/"+id+"/unlock", nil, adminToken); resp.StatusCode != http.StatusOK {
		t.Fatalf("unlock: expected 200, got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodGet, "/api/v1/authors/unknown", nil, adminToken); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown: expected 404, got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodDelete, "/api/v1/authors/"+id, nil, adminToken); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	if resp := f.do(t, http.MethodDelete, "/api/v1/admins/"+f.admin.ID.Hex(), nil, adminToken); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("self delete: expected 400, got %d", resp.StatusCode)
	}
}
