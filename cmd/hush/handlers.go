package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/bluesky-social/chatmod/chatmod/engine"

	"github.com/labstack/echo/v4"
)

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

type BatchRequest struct {
	Messages []engine.Request `json:"messages"`
}

type BatchResponse struct {
	Results []engine.Verdict `json:"results"`
}

func (srv *Server) HandleCheck(c echo.Context) error {
	ctx := c.Request().Context()

	var req engine.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, GenericError{
			Error:   "InvalidRequest",
			Message: fmt.Sprintf("%s", err),
		})
	}

	httpChecks.WithLabelValues("single").Inc()
	v, err := srv.engine.CheckMessage(ctx, req)
	if errors.Is(err, engine.ErrInvalidMessage) {
		return c.JSON(http.StatusBadRequest, GenericError{
			Error:   "InvalidMessage",
			Message: err.Error(),
		})
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, GenericError{
			Error:   "EvaluationFailed",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, v)
}

func (srv *Server) HandleCheckBatch(c echo.Context) error {
	ctx := c.Request().Context()

	var body BatchRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, GenericError{
			Error:   "InvalidRequest",
			Message: fmt.Sprintf("%s", err),
		})
	}
	if err := engine.ValidateBatch(body.Messages); err != nil {
		return c.JSON(http.StatusBadRequest, GenericError{
			Error:   "BatchTooLarge",
			Message: err.Error(),
		})
	}

	httpChecks.WithLabelValues("batch").Inc()
	results := srv.engine.CheckMessagesBatch(ctx, body.Messages)
	return c.JSON(http.StatusOK, BatchResponse{Results: results})
}

// Drops cached configuration for a community, so the next check reads it fresh from the store.
func (srv *Server) HandlePurge(c echo.Context) error {
	ctx := c.Request().Context()

	community := c.QueryParam("community")
	if community == "" {
		return c.JSON(http.StatusBadRequest, GenericError{
			Error:   "InvalidRequest",
			Message: "community parameter is required",
		})
	}
	srv.engine.PurgeCommunityCaches(ctx, community)
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "hush"})
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "hush"})
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var errorMessage string
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		errorMessage = fmt.Sprintf("%s", he.Message)
	}
	if code >= 500 {
		srv.logger.Warn("hush-http-internal-error", "err", err)
	}
	c.JSON(code, GenericStatus{Status: "error", Daemon: "hush", Message: errorMessage})
}
