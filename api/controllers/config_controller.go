package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/devconf/codec"
	"github.com/moyoez/devconf/store"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

// ConfigFileResponse is a fetched config file.
type ConfigFileResponse struct {
	Category types.Category `json:"category"`
	Path     string         `json:"path"`
	Dialect  string         `json:"dialect"`
	Content  string         `json:"content"`
	Entries  []types.Change `json:"entries"`
}

func fileResponse(category types.Category, doc *codec.Document) ConfigFileResponse {
	f, _ := category.File()
	entries := doc.Entries()
	if entries == nil {
		entries = []types.Change{}
	}
	return ConfigFileResponse{
		Category: category,
		Path:     f.Path,
		Dialect:  f.Dialect.String(),
		Content:  codec.Serialize(doc),
		Entries:  entries,
	}
}

// respondConfigError keeps the unparsed bytes in the body so the UI can still show them.
func respondConfigError(c *gin.Context, err error) {
	var malformed *store.MalformedContentError
	if errors.As(err, &malformed) {
		status, kind := classify(err)
		c.JSON(status, tool.FastReturnErrorWithData(kind, err.Error(), map[string]any{
			"category": malformed.Category,
			"path":     malformed.Path,
			"raw":      malformed.Raw,
		}))
		return
	}
	respondError(c, err)
}

// UserConfigFileGet fetches one config file from the device.
// GET /api/self/v1/config/:category
func UserConfigFileGet(c *gin.Context) {
	rt, ok := runtimeOrAbort(c)
	if !ok {
		return
	}
	category := types.Category(c.Param("category"))
	ctx, cancel := requestContext(c, rt)
	defer cancel()

	doc, err := rt.Store.Fetch(ctx, rt.Session, category)
	if err != nil {
		respondConfigError(c, err)
		return
	}
	c.JSON(http.StatusOK, fileResponse(category, doc))
}

// UserConfigFilePut replaces a config file with the given content after validating it.
// PUT /api/self/v1/config/:category
func UserConfigFilePut(c *gin.Context) {
	rt, ok := runtimeOrAbort(c)
	if !ok {
		return
	}
	var body types.ContentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorKind("bad_request", err.Error()))
		return
	}
	category := types.Category(c.Param("category"))
	ctx, cancel := requestContext(c, rt)
	defer cancel()

	if err := rt.Store.PushContent(ctx, rt.Session, category, body.Content); err != nil {
		respondConfigError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// UserConfigFilePatch sets individual keys and writes the file back.
// PATCH /api/self/v1/config/:category
func UserConfigFilePatch(c *gin.Context) {
	rt, ok := runtimeOrAbort(c)
	if !ok {
		return
	}
	var body types.ChangesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorKind("bad_request", err.Error()))
		return
	}
	if len(body.Changes) == 0 {
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorKind("bad_request", "no changes"))
		return
	}
	category := types.Category(c.Param("category"))
	ctx, cancel := requestContext(c, rt)
	defer cancel()

	doc, err := rt.Store.Update(ctx, rt.Session, category, body.Changes)
	if err != nil {
		respondConfigError(c, err)
		return
	}
	c.JSON(http.StatusOK, fileResponse(category, doc))
}
