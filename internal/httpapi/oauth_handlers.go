package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amd-aig-aima/bimserver/internal/domain"
	"github.com/amd-aig-aima/bimserver/internal/oauthflow"
)

type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func respondOAuthError(c *gin.Context, status int, oerr *oauthflow.Error) {
	c.JSON(status, oauthErrorResponse{Error: oerr.Code, ErrorDescription: oerr.Description})
}

// handleAuthorize implements the authorization endpoint's validation
// order (spec §4.5): unknown-client and redirect_uri mismatches render
// an error directly; every later failure redirects with error+state.
func (s *Server) handleAuthorize(c *gin.Context) {
	clientID := c.Query("client_id")
	redirectURI := c.Query("redirect_uri")
	state := c.Query("state")

	app, err := s.flow.ResolveClient(c.Request.Context(), clientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, oauthErrorResponse{Error: "invalid_client", ErrorDescription: err.Error()})
		return
	}
	if err := s.flow.ValidateRedirectURI(app, redirectURI); err != nil {
		c.JSON(http.StatusBadRequest, oauthErrorResponse{Error: "invalid_request", ErrorDescription: err.Error()})
		return
	}

	req := oauthflow.AuthorizeRequest{
		ResponseType:        c.Query("response_type"),
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		Scope:               splitScope(c.Query("scope")),
		State:               state,
		CodeChallenge:       c.Query("code_challenge"),
		CodeChallengeMethod: domain.CodeChallengeMethod(c.Query("code_challenge_method")),
	}
	if oerr := s.flow.ValidateAuthorizeRequest(app, req); oerr != nil {
		redirectWithError(c, redirectURI, oerr, state)
		return
	}

	principal := PrincipalFrom(c)
	code, err := s.flow.IssueAuthorizationCode(c.Request.Context(), app, principal.UserID, principal.WorkspaceID, req)
	if err != nil {
		redirectWithError(c, redirectURI, &oauthflow.Error{Code: oauthflow.ErrInvalidRequest, Description: err.Error()}, state)
		return
	}

	dest, _ := url.Parse(redirectURI)
	q := dest.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	dest.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, dest.String())
}

func redirectWithError(c *gin.Context, redirectURI string, oerr *oauthflow.Error, state string) {
	dest, err := url.Parse(redirectURI)
	if err != nil {
		respondOAuthError(c, http.StatusBadRequest, oerr)
		return
	}
	q := dest.Query()
	q.Set("error", oerr.Code)
	if oerr.Description != "" {
		q.Set("error_description", oerr.Description)
	}
	if state != "" {
		q.Set("state", state)
	}
	dest.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, dest.String())
}

func splitScope(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}

type tokenResponseDto struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// handleToken implements the token endpoint for both supported grant
// types (spec §4.5).
func (s *Server) handleToken(c *gin.Context) {
	req := oauthflow.TokenRequest{
		GrantType:    c.PostForm("grant_type"),
		Code:         c.PostForm("code"),
		RedirectURI:  c.PostForm("redirect_uri"),
		ClientID:     c.PostForm("client_id"),
		ClientSecret: c.PostForm("client_secret"),
		CodeVerifier: c.PostForm("code_verifier"),
		RefreshToken: c.PostForm("refresh_token"),
	}

	result, oerr := s.flow.Exchange(c.Request.Context(), req)
	if oerr != nil {
		status := http.StatusBadRequest
		if oerr.Code == oauthflow.ErrInvalidClient {
			status = http.StatusUnauthorized
		}
		respondOAuthError(c, status, oerr)
		return
	}

	c.JSON(http.StatusOK, tokenResponseDto{
		AccessToken:  result.AccessToken,
		TokenType:    result.TokenType,
		ExpiresIn:    result.ExpiresIn,
		RefreshToken: result.RefreshToken,
		Scope:        strings.Join(result.Scope, " "),
	})
}
