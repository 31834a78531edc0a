package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/service"
)

const (
	stateCookieName = "oauthState"
	userinfoURL     = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleHandler drives the server-side OAuth handshake and the
// link/unlink endpoints. The token exchange and profile fetch happen
// here; account resolution lives in the service.
type GoogleHandler struct {
	Cfg    config.Config
	Google *service.GoogleService
	oauth  *oauth2.Config
}

func NewGoogleHandler(cfg config.Config, svc *service.GoogleService) *GoogleHandler {
	return &GoogleHandler{
		Cfg:    cfg,
		Google: svc,
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthCallbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// googleProfile mirrors the v2 userinfo response.
type googleProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	GivenName string `json:"given_name"`
	Family    string `json:"family_name"`
	Picture   string `json:"picture"`
}

func (p googleProfile) identity() service.GoogleIdentity {
	return service.GoogleIdentity{
		GoogleID:  p.ID,
		Email:     p.Email,
		FirstName: p.GivenName,
		LastName:  p.Family,
		Avatar:    p.Picture,
	}
}

// AuthURL starts the handshake: mint a one-shot state nonce, park it
// in a short-lived cookie and bounce the browser to Google.
func (h *GoogleHandler) AuthURL(c echo.Context) error {
	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.Cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.oauth.AuthCodeURL(state))
}

// Callback finishes the handshake. On any failure the browser lands
// on the client's error page instead of a bare JSON response.
func (h *GoogleHandler) Callback(c echo.Context) error {
	fail := func() error {
		return c.Redirect(http.StatusTemporaryRedirect,
			h.Cfg.ClientURL+"/auth/error?message="+url.QueryEscape("Authentication failed"))
	}

	state := c.QueryParam("state")
	ck, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || ck.Value != state {
		return fail()
	}
	c.SetCookie(&http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	code := c.QueryParam("code")
	if code == "" {
		return fail()
	}

	ctx := c.Request().Context()
	tok, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		c.Logger().Warnf("google exchange failed: %v", err)
		return fail()
	}

	profile, err := h.fetchProfile(c, tok)
	if err != nil {
		c.Logger().Warnf("google userinfo failed: %v", err)
		return fail()
	}

	res, _, err := h.Google.ResolveIdentity(ctx, profile.identity())
	if err != nil {
		c.Logger().Warnf("google resolve failed: %v", err)
		return fail()
	}

	setAuthCookies(c, h.Cfg, res)
	return c.Redirect(http.StatusTemporaryRedirect, h.Cfg.ClientURL+"/auth/success")
}

func (h *GoogleHandler) fetchProfile(c echo.Context, tok *oauth2.Token) (googleProfile, error) {
	resp, err := h.oauth.Client(c.Request().Context(), tok).Get(userinfoURL)
	if err != nil {
		return googleProfile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return googleProfile{}, err
	}
	if p.ID == "" || p.Email == "" {
		return googleProfile{}, fmt.Errorf("userinfo missing id or email")
	}
	return p, nil
}

type googleRegisterLoginReq struct {
	GoogleID  string `json:"googleId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar"`
}

// RegisterLogin is the non-redirect variant for clients that already
// hold a verified Google profile: resolve the identity directly and
// answer with the JSON envelope.
func (h *GoogleHandler) RegisterLogin(c echo.Context) error {
	var req googleRegisterLoginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.GoogleID == "" || req.Email == "" {
		return fail(c, http.StatusBadRequest, "googleId and email are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, created, err := h.Google.ResolveIdentity(ctx, service.GoogleIdentity{
		GoogleID:  req.GoogleID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
	})
	if err != nil {
		return failErr(c, err)
	}

	setAuthCookies(c, h.Cfg, res)
	status := http.StatusOK
	msg := "Login successful"
	if created {
		status = http.StatusCreated
		msg = "User registered successfully"
	}
	return respond(c, status, msg, echo.Map{"user": res.User.Sanitize(), "tokens": tokenData(res)})
}

type googleLinkReq struct {
	GoogleID string `json:"googleId"`
	Email    string `json:"email"`
}

// Link attaches a Google identity to the authenticated account.
func (h *GoogleHandler) Link(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}
	var req googleLinkReq
	if err := c.Bind(&req); err != nil || req.GoogleID == "" {
		return fail(c, http.StatusBadRequest, "googleId is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Google.Link(ctx, p.ID, req.GoogleID, req.Email)
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "Google account linked successfully", echo.Map{"user": u.Sanitize()})
}

// Unlink detaches the Google identity from the authenticated account.
func (h *GoogleHandler) Unlink(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Google.Unlink(ctx, p.ID)
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "Google account unlinked successfully", echo.Map{"user": u.Sanitize()})
}

// Status reports the caller's Google linkage.
func (h *GoogleHandler) Status(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "authentication required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Google.Status(ctx, p.ID)
	if err != nil {
		return failErr(c, err)
	}
	return respond(c, http.StatusOK, "", st)
}
