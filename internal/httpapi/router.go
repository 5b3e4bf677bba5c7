package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/amd-aig-aima/bimserver/internal/authz"
	"github.com/amd-aig-aima/bimserver/internal/contentstore"
	"github.com/amd-aig-aima/bimserver/internal/correlation"
	"github.com/amd-aig-aima/bimserver/internal/entitystore"
	"github.com/amd-aig-aima/bimserver/internal/oauthflow"
	"github.com/amd-aig-aima/bimserver/internal/progress"
	"github.com/amd-aig-aima/bimserver/internal/tokens"
	"github.com/amd-aig-aima/bimserver/internal/uploads"
)

// Server wires every component the HTTP surface depends on.
type Server struct {
	store    entitystore.Store
	content  contentstore.Store
	checker  *authz.Checker
	issuer   *tokens.Issuer
	flow     *oauthflow.Flow
	uploader *uploads.Coordinator
	sink     *progress.PushSink
}

// NewServer wires a Server from its component dependencies.
func NewServer(store entitystore.Store, content contentstore.Store, issuer *tokens.Issuer, flow *oauthflow.Flow, uploader *uploads.Coordinator, sink *progress.PushSink) *Server {
	return &Server{
		store:    store,
		content:  content,
		checker:  authz.NewChecker(store),
		issuer:   issuer,
		flow:     flow,
		uploader: uploader,
		sink:     sink,
	}
}

// Router builds the gin.Engine exposing every route in spec §6.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(correlation.Middleware())

	r.GET("/healthz", s.handleHealth)

	r.POST("/oauth/token", s.handleToken)

	authed := r.Group("/")
	authed.Use(AuthMiddleware(s.store, s.issuer))
	{
		// The resource owner must already hold a valid bearer credential
		// to reach the authorization endpoint (spec §4.5 step 5: "Authenticate
		// the resource owner"); this service has no separate login UI, so
		// an existing session stands in for it and consent is implicit.
		authed.POST("/oauth/authorize", s.handleAuthorize)

		authed.POST("/workspaces", s.handleCreateWorkspace)
		authed.GET("/workspaces", s.handleListWorkspaces)
		authed.GET("/workspaces/:id", s.handleGetWorkspace)
		authed.PATCH("/workspaces/:id", s.handleUpdateWorkspace)

		authed.POST("/workspaces/:wsId/projects", s.handleCreateProject)
		authed.GET("/workspaces/:wsId/projects", s.handleListProjects)
		authed.GET("/projects/:id", s.handleGetProject)
		authed.PATCH("/projects/:id", s.handleUpdateProject)

		authed.POST("/projects/:prjId/uploads", s.handleReserveUpload)
		authed.GET("/projects/:prjId/uploads/:sid", s.handleGetUploadSession)
		authed.POST("/projects/:prjId/uploads/:sid/content", s.handleUploadContent)
		authed.POST("/projects/:prjId/uploads/:sid/commit", s.handleCommitUpload)
		authed.POST("/projects/:prjId/uploads/sweep", s.handleSweepUploads)

		authed.GET("/files/:id", s.handleGetFile)
		authed.GET("/files/:id/content", s.handleGetFileContent)
		authed.GET("/projects/:prjId/files", s.handleListFiles)
		authed.DELETE("/files/:id", s.handleDeleteFile)

		authed.POST("/projects/:prjId/models", s.handleCreateModel)
		authed.POST("/models/:id/versions", s.handleCreateModelVersion)
		authed.GET("/versions/:id", s.handleGetModelVersion)
		authed.GET("/versions/:id/wexbim", s.handleGetWexBim)
		authed.GET("/versions/:id/properties", s.handleListProperties)

		authed.POST("/workspaces/:wsId/pats", s.handleCreatePAT)
		authed.DELETE("/pats/:id", s.handleRevokePAT)

		authed.GET("/ws/progress/:modelVersionId", s.handleProgressWebsocket)
	}

	return r
}
