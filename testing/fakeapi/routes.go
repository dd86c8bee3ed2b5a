package fakeapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Poll is the resource served under /polls.
type Poll struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Vote is the body accepted by POST /voting/votes.
type Vote struct {
	PollID       string `json:"poll_id"`
	NominationID string `json:"nomination_id"`
	OptionID     string `json:"option_id"`
}

var polls = []Poll{
	{ID: "p1", Title: "Best pizza topping"},
	{ID: "p2", Title: "Office plant of the year"},
}

// Error body shapes served by GET /errors/:shape
const (
	ShapeEnvelope = "envelope"
	ShapeFields   = "fields"
	ShapeErrors   = "errors"
	ShapeDetail   = "detail"
	ShapeMessage  = "message"
	ShapeLegacy   = "legacy"
	ShapeEmpty    = "empty"
	ShapeText     = "text"
)

func (s *Server) routes(opts Options) {
	e := s.echo

	e.GET("/auth/csrf", s.issueCSRF)
	e.POST("/auth/login", s.login, loginRateLimit(opts.LoginRate, opts.LoginBurst))
	e.POST("/auth/logout", s.logout)

	e.GET("/polls", s.listPolls)
	e.GET("/polls/:id", s.getPoll)
	e.POST("/voting/votes", s.castVote)
	e.DELETE("/voting/votes/:id", s.retractVote)

	e.GET("/flaky/:key", s.flakyRoute)
	e.GET("/status/:code", s.statusRoute)
	e.Any("/errors/:shape", s.errorShape)
	e.GET("/slow", s.slow)
}

// envelope writes the nested {"error": {...}} body.
func envelope(c echo.Context, status int, code, message string) error {
	body := map[string]any{
		"message":    message,
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	}
	if code != "" {
		body["code"] = code
	}
	return c.JSON(status, map[string]any{"error": body})
}

func (s *Server) issueCSRF(c echo.Context) error {
	c.SetCookie(&http.Cookie{Name: CSRFCookie, Value: uuid.NewString(), Path: "/"})
	return c.NoContent(http.StatusNoContent)
}

// csrfValid compares the anti-forgery header against the cookie.
func csrfValid(c echo.Context) bool {
	cookie, err := c.Cookie(CSRFCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	return c.Request().Header.Get(CSRFHeader) == cookie.Value
}

func (s *Server) login(c echo.Context) error {
	if !csrfValid(c) {
		return envelope(c, http.StatusForbidden, CodeCSRFFailed, "CSRF verification failed")
	}

	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&creds); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"detail": "Malformed request body."})
	}
	if creds.Username != ValidUsername || creds.Password != ValidPassword {
		// legacy flat shape
		return c.JSON(http.StatusUnauthorized, map[string]any{
			"code":    CodeInvalidCredentials,
			"message": "Invalid username or password",
		})
	}

	c.SetCookie(&http.Cookie{Name: SessionCookie, Value: uuid.NewString(), Path: "/", HttpOnly: true})
	return c.JSON(http.StatusOK, map[string]any{"username": creds.Username})
}

func (s *Server) logout(c echo.Context) error {
	if !csrfValid(c) {
		return envelope(c, http.StatusForbidden, CodeCSRFFailed, "CSRF verification failed")
	}
	c.SetCookie(&http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listPolls(c echo.Context) error {
	return c.JSON(http.StatusOK, polls)
}

func (s *Server) getPoll(c echo.Context) error {
	for _, p := range polls {
		if p.ID == c.Param("id") {
			return c.JSON(http.StatusOK, p)
		}
	}
	return c.JSON(http.StatusNotFound, map[string]any{"detail": "Not found."})
}

func (s *Server) castVote(c echo.Context) error {
	var v Vote
	if err := c.Bind(&v); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"detail": "Malformed request body."})
	}

	missing := map[string]any{}
	if v.PollID == "" {
		missing["poll_id"] = []string{"This field is required."}
	}
	if v.OptionID == "" {
		missing["option_id"] = []string{"This field is required."}
	}
	if len(missing) > 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{"fields": missing})
	}

	key := v.PollID + "/" + v.NominationID
	s.mu.Lock()
	_, dup := s.votes[key]
	s.votes[key] = struct{}{}
	s.mu.Unlock()
	if dup {
		return envelope(c, http.StatusConflict, CodeAlreadyVoted, "You have already voted in this poll")
	}

	return c.JSON(http.StatusCreated, v)
}

func (s *Server) retractVote(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// flakyRoute answers 503 for the first ?failures= calls per key, then 200.
func (s *Server) flakyRoute(c echo.Context) error {
	failures, _ := strconv.Atoi(c.QueryParam("failures"))
	key := c.Param("key")

	s.mu.Lock()
	s.flaky[key]++
	calls := s.flaky[key]
	s.mu.Unlock()

	if calls <= failures {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"message": "Service temporarily unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "calls": calls})
}

func (s *Server) statusRoute(c echo.Context) error {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code < 100 || code > 599 {
		return c.JSON(http.StatusBadRequest, map[string]any{"detail": "Invalid status code."})
	}
	if code == http.StatusNoContent {
		return c.NoContent(code)
	}
	return c.JSON(code, map[string]any{"message": http.StatusText(code)})
}

// errorShape serves one of the error body shapes with ?status= (default 400)
// and ?code= (default none).
func (s *Server) errorShape(c echo.Context) error {
	status := http.StatusBadRequest
	if v, err := strconv.Atoi(c.QueryParam("status")); err == nil {
		status = v
	}
	code := c.QueryParam("code")

	switch c.Param("shape") {
	case ShapeEnvelope:
		return envelope(c, status, code, "Request rejected")
	case ShapeFields:
		return c.JSON(status, withCode(code, map[string]any{
			"fields": map[string]any{"email": []string{"Enter a valid email address."}},
		}))
	case ShapeErrors:
		return c.JSON(status, withCode(code, map[string]any{
			"errors": []map[string]any{{"field": "name", "message": "Name is too long."}},
		}))
	case ShapeDetail:
		return c.JSON(status, withCode(code, map[string]any{"detail": "Detail explains the failure."}))
	case ShapeMessage:
		return c.JSON(status, withCode(code, map[string]any{"message": "Message explains the failure."}))
	case ShapeLegacy:
		if code == "" {
			code = CodeUnrecognized
		}
		return c.JSON(status, map[string]any{"code": code, "message": "Legacy failure."})
	case ShapeEmpty:
		return c.NoContent(status)
	case ShapeText:
		return c.String(status, "upstream exploded")
	default:
		return c.JSON(http.StatusNotFound, map[string]any{"detail": "Unknown shape."})
	}
}

func withCode(code string, body map[string]any) map[string]any {
	if code != "" {
		body["code"] = code
	}
	return body
}

// slow waits ?delay= (default 1s) or until the client goes away.
func (s *Server) slow(c echo.Context) error {
	delay, err := time.ParseDuration(c.QueryParam("delay"))
	if err != nil {
		delay = time.Second
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return c.JSON(http.StatusOK, map[string]any{"waited": delay.String()})
	case <-c.Request().Context().Done():
		return c.Request().Context().Err()
	}
}
