package postpilot

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/juniperhq/postpilot/markdown"
)

func (a *App) setupRoutes() {
	e := a.Echo

	e.POST("/api/login", a.handleLogin)
	e.POST("/api/logout", handleLogout)

	api := e.Group("/api", requireAdmin)
	api.GET("/posts", a.handleListPosts)
	api.POST("/posts", a.handleCreatePost)
	api.DELETE("/posts", a.handleDeleteByKeyword)
	api.GET("/posts/:id", a.handleGetPost)
	api.PATCH("/posts/:id", a.handleUpdatePost)
	api.DELETE("/posts/:id", a.handleDeletePost)
	api.GET("/posts/:id/images", a.handlePostImages)
	api.POST("/posts/:id/generate", a.handleGeneratePost)
	api.GET("/settings", a.handleGetSettings)
	api.PUT("/settings", a.handleSaveSettings)

	e.Static("/public", a.staticDir)

	for _, fn := range a.customRoutes {
		fn(a)
	}
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func (a *App) handleListPosts(c echo.Context) error {
	posts, err := a.Store.ListPosts(PostStatus(c.QueryParam("status")))
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []BlogPost{}
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleCreatePost(c echo.Context) error {
	var p BlogPost
	if err := c.Bind(&p); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if len(FilterEmpty(p.Keywords)) == 0 {
		return jsonError(c, http.StatusBadRequest, "at least one keyword is required")
	}
	created, err := a.Store.CreatePost(p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (a *App) handleGetPost(c echo.Context) error {
	p, err := a.Store.GetPost(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleUpdatePost(c echo.Context) error {
	var patch PostPatch
	if err := c.Bind(&patch); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	p, err := a.Store.UpdatePost(c.Param("id"), patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (a *App) handleDeletePost(c echo.Context) error {
	if err := a.Store.DeletePost(c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleDeleteByKeyword removes every non-published post matching the
// given primary keyword. Published posts are never touched.
func (a *App) handleDeleteByKeyword(c echo.Context) error {
	keyword := strings.TrimSpace(c.QueryParam("keyword"))
	if keyword == "" {
		return jsonError(c, http.StatusBadRequest, "keyword query parameter is required")
	}
	deleted, err := a.Store.DeleteByKeyword(keyword)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": deleted})
}

// handlePostImages returns the post's resolved images grouped by the
// article heading they belong to.
func (a *App) handlePostImages(c echo.Context) error {
	p, err := a.Store.GetPost(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return err
	}
	groups := markdown.GroupImagesByHeading(p.Content, p.AffiliateImages)
	if groups == nil {
		groups = []markdown.ImageGroup{}
	}
	return c.JSON(http.StatusOK, groups)
}

// handleGeneratePost runs the full pipeline for one post immediately,
// without waiting for the scheduler tick.
func (a *App) handleGeneratePost(c echo.Context) error {
	p, err := a.Store.GetPost(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return jsonError(c, http.StatusNotFound, "post not found")
		}
		return err
	}
	if p.Status == StatusGenerating {
		return jsonError(c, http.StatusConflict, "post is already generating")
	}
	if err := a.pipeline.Run(c.Request().Context(), p); err != nil {
		return jsonError(c, http.StatusBadGateway, err.Error())
	}
	updated, err := a.Store.GetPost(p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (a *App) handleGetSettings(c echo.Context) error {
	st, err := a.Store.GetSettings()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (a *App) handleSaveSettings(c echo.Context) error {
	var st Settings
	if err := c.Bind(&st); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := a.Store.SaveSettings(st); err != nil {
		return err
	}
	saved, err := a.Store.GetSettings()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, saved)
}
