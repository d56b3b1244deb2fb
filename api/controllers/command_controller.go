package controllers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/devconf/remote"
	"github.com/moyoez/devconf/tool"
)

// UserCommandList names the commands UserCommand accepts.
// GET /api/self/v1/command
func UserCommandList(c *gin.Context) {
	vocab := remote.Vocabulary()
	names := make([]string, 0, len(vocab))
	for name := range vocab {
		names = append(names, name)
	}
	slices.Sort(names)
	c.JSON(http.StatusOK, gin.H{"commands": names})
}

// UserCommand runs one command of the fixed vocabulary on the device.
// POST /api/self/v1/command/:name
func UserCommand(c *gin.Context) {
	rt, ok := runtimeOrAbort(c)
	if !ok {
		return
	}
	cmd, found := remote.Vocabulary()[c.Param("name")]
	if !found {
		c.JSON(http.StatusNotFound, tool.FastReturnErrorKind("unknown_command", "unknown command: "+c.Param("name")))
		return
	}
	// the upgrade command carries its own, longer timeout
	ctx, cancel := requestContext(c, rt)
	if cmd.Timeout > rt.RequestTimeout {
		cancel()
		ctx, cancel = c.Request.Context(), func() {}
	}
	defer cancel()

	out, err := rt.Session.Run(ctx, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	tool.DefaultLogger.Infof("[API] ran %s in %s", cmd.Name, out.Duration)
	c.JSON(http.StatusOK, gin.H{
		"command":   cmd.Name,
		"stdout":    out.Stdout,
		"stderr":    out.Stderr,
		"exit_code": out.ExitCode,
	})
}
