package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amd-aig-aima/bimserver/internal/contentstore/local"
	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/idutil"
	"github.com/amd-aig-aima/bimserver/internal/oauthflow"
	"github.com/amd-aig-aima/bimserver/internal/queue"
	"github.com/amd-aig-aima/bimserver/internal/tokens"
	"github.com/amd-aig-aima/bimserver/internal/uploads"
)

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()
	content, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	issuer := tokens.NewIssuer("test-signing-key", 15*time.Minute)
	flow := oauthflow.New(store, issuer)
	uploader := uploads.New(store, content, queue.New(8), 30*time.Minute)
	return NewServer(store, content, issuer, flow, uploader, nil), store
}

// bearerFor mints a signed access token for a principal scoped to
// workspaceID with the given scopes, matching authenticateAccessToken.
func bearerFor(t *testing.T, s *Server, userID, workspaceID string, scopes ...string) string {
	t.Helper()
	tok, _, err := s.issuer.IssueAccessToken(userID, workspaceID, "", scopes)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	return "Bearer " + tok
}

func doJSON(t *testing.T, r http.Handler, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func seedWorkspaceAndProject(t *testing.T, store *memStore, userID string) (wsID, prjID string) {
	t.Helper()
	wsID, prjID = idutil.NewUID(), idutil.NewUID()
	if err := store.CreateWorkspace(nil, &domain.Workspace{ID: wsID, Name: "acme"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertWorkspaceMembership(nil, &domain.WorkspaceMembership{WorkspaceID: wsID, UserID: userID, Role: domain.WorkspaceOwner}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateProject(nil, &domain.Project{ID: prjID, WorkspaceID: wsID, Name: "tower"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertProjectMembership(nil, &domain.ProjectMembership{ProjectID: prjID, UserID: userID, Role: domain.ProjectAdmin}); err != nil {
		t.Fatal(err)
	}
	return wsID, prjID
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateWorkspace_RequiresScope(t *testing.T) {
	s, _ := newTestServer(t)
	bearer := bearerFor(t, s, "user-1", "")
	rec := doJSON(t, s.Router(), http.MethodPost, "/workspaces", bearer, createWorkspaceRequest{Name: "acme"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateWorkspace_HappyPath(t *testing.T) {
	s, _ := newTestServer(t)
	bearer := bearerFor(t, s, "user-1", "", domain.ScopeWorkspacesWrite)
	rec := doJSON(t, s.Router(), http.MethodPost, "/workspaces", bearer, createWorkspaceRequest{Name: "acme", Description: "d"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var ws WorkspaceDto
	if err := json.Unmarshal(rec.Body.Bytes(), &ws); err != nil {
		t.Fatal(err)
	}
	if ws.Name != "acme" {
		t.Fatalf("name = %q", ws.Name)
	}
}

func TestGetWorkspace_CrossWorkspaceTokenIsForbidden(t *testing.T) {
	s, store := newTestServer(t)
	wsID, _ := seedWorkspaceAndProject(t, store, "user-1")
	// Token scoped to a different workspace must never read this one.
	bearer := bearerFor(t, s, "user-1", "some-other-workspace")
	rec := doJSON(t, s.Router(), http.MethodGet, "/workspaces/"+wsID, bearer, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
}

func TestGetWorkspace_HappyPath(t *testing.T) {
	s, store := newTestServer(t)
	wsID, _ := seedWorkspaceAndProject(t, store, "user-1")
	bearer := bearerFor(t, s, "user-1", wsID)
	rec := doJSON(t, s.Router(), http.MethodGet, "/workspaces/"+wsID, bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateProject_RequiresWorkspaceMember(t *testing.T) {
	s, store := newTestServer(t)
	wsID := idutil.NewUID()
	if err := store.CreateWorkspace(nil, &domain.Workspace{ID: wsID, Name: "acme"}); err != nil {
		t.Fatal(err)
	}
	bearer := bearerFor(t, s, "user-2", wsID, domain.ScopeProjectsWrite)
	rec := doJSON(t, s.Router(), http.MethodPost, "/workspaces/"+wsID+"/projects", bearer, createProjectRequest{Name: "tower"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (no membership row): %s", rec.Code, rec.Body.String())
	}
}

func TestUploadRoundTrip_ReserveContentCommit(t *testing.T) {
	s, store := newTestServer(t)
	wsID, prjID := seedWorkspaceAndProject(t, store, "user-1")
	bearer := bearerFor(t, s, "user-1", wsID, domain.ScopeFilesWrite)
	r := s.Router()

	reserveRec := doJSON(t, r, http.MethodPost, "/projects/"+prjID+"/uploads", bearer, reserveUploadRequest{
		FileName: "model.ifc", ContentType: "application/octet-stream",
	})
	if reserveRec.Code != http.StatusCreated {
		t.Fatalf("reserve status = %d: %s", reserveRec.Code, reserveRec.Body.String())
	}
	var reserved ReserveUploadResponse
	if err := json.Unmarshal(reserveRec.Body.Bytes(), &reserved); err != nil {
		t.Fatal(err)
	}
	sid := reserved.Session.ID

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "model.ifc")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("ISO-10303-21;")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/projects/"+prjID+"/uploads/"+sid+"/content", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer)
	contentRec := httptest.NewRecorder()
	r.ServeHTTP(contentRec, req)
	if contentRec.Code != http.StatusOK {
		t.Fatalf("content status = %d: %s", contentRec.Code, contentRec.Body.String())
	}

	commitRec := doJSON(t, r, http.MethodPost, "/projects/"+prjID+"/uploads/"+sid+"/commit", bearer, commitUploadRequest{})
	if commitRec.Code != http.StatusOK {
		t.Fatalf("commit status = %d: %s", commitRec.Code, commitRec.Body.String())
	}
	var committed CommitUploadResponse
	if err := json.Unmarshal(commitRec.Body.Bytes(), &committed); err != nil {
		t.Fatal(err)
	}
	if committed.File.Category != domain.FileIfc {
		t.Fatalf("category = %q, want Ifc", committed.File.Category)
	}

	getRec := doJSON(t, r, http.MethodGet, "/files/"+committed.File.ID+"/content", bearer, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get content status = %d", getRec.Code)
	}
	if getRec.Body.String() != "ISO-10303-21;" {
		t.Fatalf("content = %q", getRec.Body.String())
	}
}

func TestModelVersionLifecycle(t *testing.T) {
	s, store := newTestServer(t)
	wsID, prjID := seedWorkspaceAndProject(t, store, "user-1")
	bearer := bearerFor(t, s, "user-1", wsID, domain.ScopeModelsWrite, domain.ScopeFilesRead)
	r := s.Router()

	modelRec := doJSON(t, r, http.MethodPost, "/projects/"+prjID+"/models", bearer, createModelRequest{Name: "tower-bim"})
	if modelRec.Code != http.StatusCreated {
		t.Fatalf("create model status = %d: %s", modelRec.Code, modelRec.Body.String())
	}
	var model ModelDto
	if err := json.Unmarshal(modelRec.Body.Bytes(), &model); err != nil {
		t.Fatal(err)
	}

	file := &domain.File{ID: idutil.NewUID(), ProjectID: prjID, Name: "model.ifc", Category: domain.FileIfc}
	if err := store.CreateFile(nil, file); err != nil {
		t.Fatal(err)
	}

	versionRec := doJSON(t, r, http.MethodPost, "/models/"+model.ID+"/versions", bearer, createModelVersionRequest{IfcFileID: file.ID})
	if versionRec.Code != http.StatusCreated {
		t.Fatalf("create version status = %d, want 201 only: %s", versionRec.Code, versionRec.Body.String())
	}
	var version ModelVersionDto
	if err := json.Unmarshal(versionRec.Body.Bytes(), &version); err != nil {
		t.Fatal(err)
	}

	getRec := doJSON(t, r, http.MethodGet, "/versions/"+version.ID, bearer, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get version status = %d: %s", getRec.Code, getRec.Body.String())
	}

	wexRec := doJSON(t, r, http.MethodGet, "/versions/"+version.ID+"/wexbim", bearer, nil)
	if wexRec.Code != http.StatusNotFound {
		t.Fatalf("wexbim status = %d, want 404 (version not yet ready): %s", wexRec.Code, wexRec.Body.String())
	}
}

func TestProperties_LabelLookup(t *testing.T) {
	s, store := newTestServer(t)
	wsID, prjID := seedWorkspaceAndProject(t, store, "user-1")
	bearer := bearerFor(t, s, "user-1", wsID, domain.ScopeModelsRead)
	r := s.Router()

	versionID := idutil.NewUID()
	if err := store.CreateModel(nil, &domain.Model{ID: "model-1", ProjectID: prjID}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateModelVersion(nil, &domain.ModelVersion{ID: versionID, ModelID: "model-1", Status: domain.VersionReady}); err != nil {
		t.Fatal(err)
	}
	if err := store.BulkInsertIfcElements(nil, []*domain.IfcElement{{ID: idutil.NewUID(), ModelVersionID: versionID, EntityLabel: 123, GlobalID: "G123", Name: "Wall-1"}}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, r, http.MethodGet, "/versions/"+versionID+"/properties?label=123", bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var page PagedList[IfcElementDto]
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].EntityLabel != 123 {
		t.Fatalf("items = %+v", page.Items)
	}

	rec = doJSON(t, r, http.MethodGet, "/versions/"+versionID+"/properties?globalId=G123", bearer, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	page = PagedList[IfcElementDto]{}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.Items[0].GlobalID != "G123" {
		t.Fatalf("items = %+v", page.Items)
	}
}

func TestOAuthAuthorizeAndTokenRoundTrip(t *testing.T) {
	s, store := newTestServer(t)
	wsID, _ := seedWorkspaceAndProject(t, store, "user-1")

	const secret = "s3cr3t-value"
	hash, err := tokens.HashClientSecret(secret)
	if err != nil {
		t.Fatal(err)
	}
	app := &domain.OAuthApp{
		ID: idutil.NewUID(), WorkspaceID: wsID, ClientID: "client-1", ClientType: domain.ClientConfidential,
		RedirectURIs: []string{"https://app.example.com/callback"}, AllowedScopes: []string{domain.ScopeFilesRead},
		IsEnabled: true, ClientSecretHash: hash,
	}
	if err := store.CreateOAuthApp(nil, app); err != nil {
		t.Fatal(err)
	}

	r := s.Router()
	bearer := bearerFor(t, s, "user-1", wsID)
	authorizeURL := "/oauth/authorize?response_type=code&client_id=client-1&redirect_uri=" +
		"https%3A%2F%2Fapp.example.com%2Fcallback&scope=files%3Aread&state=xyz"
	req := httptest.NewRequest(http.MethodPost, authorizeURL, nil)
	req.Header.Set("Authorization", bearer)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("authorize status = %d: %s", rec.Code, rec.Body.String())
	}
	loc, err := rec.Result().Location()
	if err != nil {
		t.Fatalf("no Location header: %v", err)
	}
	code := loc.Query().Get("code")
	if code == "" {
		t.Fatalf("no code in redirect: %s", loc.String())
	}
	if loc.Query().Get("state") != "xyz" {
		t.Fatalf("state not echoed: %s", loc.String())
	}

	form := "grant_type=authorization_code&code=" + code +
		"&redirect_uri=https%3A%2F%2Fapp.example.com%2Fcallback&client_id=client-1&client_secret=" + secret
	tokReq := httptest.NewRequest(http.MethodPost, "/oauth/token", bytes.NewBufferString(form))
	tokReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokRec := httptest.NewRecorder()
	r.ServeHTTP(tokRec, tokReq)
	if tokRec.Code != http.StatusOK {
		t.Fatalf("token status = %d: %s", tokRec.Code, tokRec.Body.String())
	}
	var tokResp tokenResponseDto
	if err := json.Unmarshal(tokRec.Body.Bytes(), &tokResp); err != nil {
		t.Fatal(err)
	}
	if tokResp.AccessToken == "" || tokResp.RefreshToken == "" {
		t.Fatalf("missing tokens: %+v", tokResp)
	}
}

func TestCreateAndRevokePAT(t *testing.T) {
	s, store := newTestServer(t)
	wsID, _ := seedWorkspaceAndProject(t, store, "user-1")
	bearer := bearerFor(t, s, "user-1", wsID, domain.ScopePatsWrite)
	r := s.Router()

	rec := doJSON(t, r, http.MethodPost, "/workspaces/"+wsID+"/pats", bearer, createPATRequest{
		Name: "ci-bot", Scopes: []string{domain.ScopeFilesRead},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create pat status = %d: %s", rec.Code, rec.Body.String())
	}
	var created PersonalAccessTokenCreatedDto
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Token == "" {
		t.Fatal("expected a raw token in the create response")
	}

	// The freshly minted PAT itself can authenticate.
	patBearer := "Bearer " + created.Token
	fileRec := doJSON(t, r, http.MethodGet, "/workspaces/"+wsID, patBearer, nil)
	if fileRec.Code != http.StatusOK {
		t.Fatalf("pat auth status = %d: %s", fileRec.Code, fileRec.Body.String())
	}

	revokeRec := doJSON(t, r, http.MethodDelete, "/pats/"+created.ID, bearer, nil)
	if revokeRec.Code != http.StatusNoContent {
		t.Fatalf("revoke status = %d: %s", revokeRec.Code, revokeRec.Body.String())
	}

	reuseRec := doJSON(t, r, http.MethodGet, "/workspaces/"+wsID, patBearer, nil)
	if reuseRec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked pat status = %d, want 401: %s", reuseRec.Code, reuseRec.Body.String())
	}
}

func TestAuthMiddleware_MissingBearerIsUnauthenticated(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s.Router(), http.MethodGet, "/workspaces", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", rec.Code, rec.Body.String())
	}
}
