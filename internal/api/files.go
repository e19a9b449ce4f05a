package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/penosext/pentools/internal/filemanager"
	"github.com/penosext/pentools/pkg/types"
)

// listFiles loads ?path= (or reloads the current directory) and applies the
// hidden/keyword filter. ?all=true shows dot files, ?find= filters names.
func (s *Server) listFiles(c echo.Context) error {
	fm := s.deps.Files
	if fm == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}

	ctx := c.Request().Context()
	var (
		res *types.DirListing
		err error
	)
	if path := c.QueryParam("path"); path != "" {
		res, err = fm.ChangeDir(ctx, path)
	} else {
		res, err = fm.Load(ctx)
	}
	if err != nil {
		return errorJSON(c, err)
	}

	// Filter the returned listing, not the manager's current one, which a
	// concurrent request may already have replaced.
	res.Entries = filemanager.FilterEntries(res.Entries, filemanager.Filter{
		ShowHidden: c.QueryParam("all") == "true",
		Keyword:    c.QueryParam("find"),
	})
	return c.JSON(http.StatusOK, res)
}

func (s *Server) createFile(c echo.Context) error {
	return s.mutateFiles(c, func(ctx context.Context, fm *filemanager.Manager, req types.NameRequest) (*types.DirListing, error) {
		return fm.CreateFile(ctx, req.Name)
	})
}

func (s *Server) createDir(c echo.Context) error {
	return s.mutateFiles(c, func(ctx context.Context, fm *filemanager.Manager, req types.NameRequest) (*types.DirListing, error) {
		return fm.CreateDir(ctx, req.Name)
	})
}

func (s *Server) renameEntry(c echo.Context) error {
	return s.mutateFiles(c, func(ctx context.Context, fm *filemanager.Manager, req types.NameRequest) (*types.DirListing, error) {
		return fm.Rename(ctx, req.Name, req.NewName)
	})
}

func (s *Server) deleteEntry(c echo.Context) error {
	fm := s.deps.Files
	if fm == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	req := types.NameRequest{Path: c.QueryParam("path"), Name: c.QueryParam("name")}
	return s.applyMutation(c, fm, req, func(ctx context.Context, fm *filemanager.Manager, req types.NameRequest) (*types.DirListing, error) {
		return fm.Delete(ctx, req.Name)
	})
}

type fileMutation func(ctx context.Context, fm *filemanager.Manager, req types.NameRequest) (*types.DirListing, error)

func (s *Server) mutateFiles(c echo.Context, op fileMutation) error {
	fm := s.deps.Files
	if fm == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	var req types.NameRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	return s.applyMutation(c, fm, req, op)
}

// applyMutation switches to req.Path first when it differs from the current
// directory, then runs op against the entry name.
func (s *Server) applyMutation(c echo.Context, fm *filemanager.Manager, req types.NameRequest, op fileMutation) error {
	if req.Name == "" {
		return badRequest(c, "name is required")
	}
	ctx := c.Request().Context()
	if req.Path != "" && req.Path != fm.Cwd() {
		if _, err := fm.ChangeDir(ctx, req.Path); err != nil {
			return errorJSON(c, err)
		}
	}
	res, err := op(ctx, fm, req)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
