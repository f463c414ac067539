package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func registerAndConnect(t *testing.T, email, password string) string {
	t.Helper()

	body, _ := json.Marshal(RegisterRequest{Email: email, Password: password})
	req := httptest.NewRequest("POST", "/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	testRouter.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	req = httptest.NewRequest("GET", "/connect", nil)
	req.SetBasicAuth(email, password)
	rr = httptest.NewRecorder()
	testRouter.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var tokenResp TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tokenResp))
	require.NotEmpty(t, tokenResp.Token)
	return tokenResp.Token
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@example.com", prefix, time.Now().UnixNano())
}

func doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	rr := httptest.NewRecorder()
	testRouter.ServeHTTP(rr, req)
	return rr
}

func uploadFolder(t *testing.T, token, name string, parentID int64) FileResponse {
	t.Helper()

	rr := doJSON(t, "POST", "/files", token, UploadRequest{Name: name, Type: "folder", ParentID: parentID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp FileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestAPI_Register_Validation(t *testing.T) {
	rr := doJSON(t, "POST", "/users", "", map[string]string{"password": "pw"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Missing email")

	rr = doJSON(t, "POST", "/users", "", map[string]string{"email": "x@y.com"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Missing password")
}

func TestAPI_Register_DuplicateEmail(t *testing.T) {
	email := uniqueEmail("dup")
	registerAndConnect(t, email, "pw1")

	rr := doJSON(t, "POST", "/users", "", RegisterRequest{Email: email, Password: "pw2"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Already exist")
}

func TestAPI_Connect_BadCredentials(t *testing.T) {
	email := uniqueEmail("badcreds")
	registerAndConnect(t, email, "correct")

	req := httptest.NewRequest("GET", "/connect", nil)
	req.SetBasicAuth(email, "wrong")
	rr := httptest.NewRecorder()
	testRouter.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest("GET", "/connect", nil)
	rr = httptest.NewRecorder()
	testRouter.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPI_Disconnect_RevokesToken(t *testing.T) {
	token := registerAndConnect(t, uniqueEmail("logout"), "pw1")

	rr := doJSON(t, "GET", "/users/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, "GET", "/disconnect", token, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, "GET", "/users/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPI_AuthMiddleware(t *testing.T) {
	rr := doJSON(t, "GET", "/files", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, "GET", "/files", "not-a-real-token", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPI_Upload_Validation(t *testing.T) {
	token := registerAndConnect(t, uniqueEmail("upl"), "pw1")

	rr := doJSON(t, "POST", "/files", token, UploadRequest{Type: "folder"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Missing name")

	rr = doJSON(t, "POST", "/files", token, UploadRequest{Name: "x", Type: "archive"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Missing type")

	rr = doJSON(t, "POST", "/files", token, UploadRequest{Name: "x", Type: "file"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Missing data")
}

func TestAPI_Upload_ParentValidation(t *testing.T) {
	token := registerAndConnect(t, uniqueEmail("parent"), "pw1")

	rr := doJSON(t, "POST", "/files", token, UploadRequest{Name: "orphan", Type: "folder", ParentID: 999999})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Parent not found")

	payload := base64.StdEncoding.EncodeToString([]byte("hello"))
	rr = doJSON(t, "POST", "/files", token, UploadRequest{Name: "leaf.txt", Type: "file", Data: payload})
	require.Equal(t, http.StatusCreated, rr.Code)

	var leaf FileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &leaf))

	rr = doJSON(t, "POST", "/files", token, UploadRequest{Name: "inside", Type: "folder", ParentID: leaf.ID})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Parent is not a folder")
}

func TestAPI_List_Pagination(t *testing.T) {
	token := registerAndConnect(t, uniqueEmail("pages"), "pw1")
	folder := uploadFolder(t, token, "Bulk", 0)

	for i := 0; i < 25; i++ {
		uploadFolder(t, token, fmt.Sprintf("sub_%02d", i), folder.ID)
	}

	var page []FileResponse

	rr := doJSON(t, "GET", fmt.Sprintf("/files?parentId=%d&page=0", folder.ID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page, 20)

	rr = doJSON(t, "GET", fmt.Sprintf("/files?parentId=%d&page=1", folder.ID), token, nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page, 5)

	rr = doJSON(t, "GET", fmt.Sprintf("/files?parentId=%d&page=2", folder.ID), token, nil)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Empty(t, page)
}

func TestAPI_Visibility(t *testing.T) {
	ownerToken := registerAndConnect(t, uniqueEmail("owner"), "pw1")
	otherToken := registerAndConnect(t, uniqueEmail("other"), "pw2")

	payload := base64.StdEncoding.EncodeToString([]byte("secret notes"))
	rr := doJSON(t, "POST", "/files", ownerToken, UploadRequest{Name: "notes.txt", Type: "file", Data: payload})
	require.Equal(t, http.StatusCreated, rr.Code)

	var file FileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &file))
	require.False(t, file.IsPublic)

	metaPath := fmt.Sprintf("/files/%d", file.ID)
	dataPath := fmt.Sprintf("/files/%d/data", file.ID)

	// Private: owner reads, the other user is forbidden, for both metadata
	// and raw content.
	require.Equal(t, http.StatusOK, doJSON(t, "GET", metaPath, ownerToken, nil).Code)
	require.Equal(t, http.StatusOK, doJSON(t, "GET", dataPath, ownerToken, nil).Code)
	require.Equal(t, http.StatusForbidden, doJSON(t, "GET", metaPath, otherToken, nil).Code)
	require.Equal(t, http.StatusForbidden, doJSON(t, "GET", dataPath, otherToken, nil).Code)

	// Only the owner may publish.
	rr = doJSON(t, "PUT", fmt.Sprintf("/files/%d/publish", file.ID), otherToken, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, "PUT", fmt.Sprintf("/files/%d/publish", file.ID), ownerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &file))
	require.True(t, file.IsPublic)

	// Published: readable by the other user without re-authenticating.
	require.Equal(t, http.StatusOK, doJSON(t, "GET", metaPath, otherToken, nil).Code)

	rr = doJSON(t, "GET", dataPath, otherToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "secret notes", rr.Body.String())

	rr = doJSON(t, "PUT", fmt.Sprintf("/files/%d/unpublish", file.ID), ownerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, http.StatusForbidden, doJSON(t, "GET", metaPath, otherToken, nil).Code)
}

func TestAPI_GetFile_NotFound(t *testing.T) {
	token := registerAndConnect(t, uniqueEmail("missing"), "pw1")

	rr := doJSON(t, "GET", "/files/999999", token, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = doJSON(t, "GET", "/files/not-a-number", token, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_Download_Folder(t *testing.T) {
	token := registerAndConnect(t, uniqueEmail("folderdata"), "pw1")
	folder := uploadFolder(t, token, "Empty", 0)

	rr := doJSON(t, "GET", fmt.Sprintf("/files/%d/data", folder.ID), token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "A folder doesn't have content")
}

func TestAPI_Download_ReadFailures(t *testing.T) {
	token := registerAndConnect(t, uniqueEmail("readerr"), "pw1")

	payload := base64.StdEncoding.EncodeToString([]byte("fragile"))
	rr := doJSON(t, "POST", "/files", token, UploadRequest{Name: "fragile.txt", Type: "file", Data: payload})
	require.Equal(t, http.StatusCreated, rr.Code)

	var file FileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &file))

	node, err := testStore.GetFileByID(context.Background(), file.ID)
	require.NoError(t, err)
	require.NotNil(t, node.LocalPath)

	dataPath := fmt.Sprintf("/files/%d/data", file.ID)

	// A vanished artifact reads as absent.
	require.NoError(t, os.Remove(*node.LocalPath))
	require.Equal(t, http.StatusNotFound, doJSON(t, "GET", dataPath, token, nil).Code)

	// An artifact that exists but cannot be read is an internal failure,
	// not absence. A directory in its place forces the read to fail.
	require.NoError(t, os.Mkdir(*node.LocalPath, 0o755))
	require.Equal(t, http.StatusInternalServerError, doJSON(t, "GET", dataPath, token, nil).Code)
}

func TestAPI_Upload_FailedInsertRemovesContent(t *testing.T) {
	token := registerAndConnect(t, uniqueEmail("orphan"), "pw1")

	before, err := os.ReadDir(testStorage.BasePath())
	require.NoError(t, err)

	payload := base64.StdEncoding.EncodeToString([]byte("doomed"))
	rr := doJSON(t, "POST", "/files", token, UploadRequest{Name: "doomed.txt", Type: "file", Data: payload, ParentID: 999999})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Parent not found")

	after, err := os.ReadDir(testStorage.BasePath())
	require.NoError(t, err)
	require.Len(t, after, len(before), "rejected upload should not leave content behind")
}

func TestAPI_StatusAndStats(t *testing.T) {
	rr := doJSON(t, "GET", "/status", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var status map[string]bool
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.True(t, status["redis"])
	require.True(t, status["db"])

	registerAndConnect(t, uniqueEmail("stats"), "pw1")

	rr = doJSON(t, "GET", "/stats", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var stats map[string]int64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	require.GreaterOrEqual(t, stats["users"], int64(1))
}

func TestAPI_SessionExpiry(t *testing.T) {
	email := uniqueEmail("expiry")
	registerAndConnect(t, email, "pw1")

	user, err := testStore.GetUserByEmail(context.Background(), email)
	require.NoError(t, err)
	require.NotNil(t, user)

	// An expired session resolves to absent, so the request is unauthorized.
	userID, err := testSessions.Resolve(context.Background(), "expired-token")
	require.NoError(t, err)
	require.Zero(t, userID)

	rr := doJSON(t, "GET", "/users/me", "expired-token", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}
