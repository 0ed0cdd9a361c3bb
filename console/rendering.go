package console

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/unrolled/render"
)

// Render is the global render.Render object used by all handlers.
var Render *render.Render

// BuildRender builds Render.
func BuildRender() {
	Render = render.New(render.Options{
		IndentJSON: true,
	})
}

type errorResponse struct {
	Version int    `json:"version"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func buildError(tag string, message string) *errorResponse {
	return &errorResponse{
		Version: 1,
		Tag:     tag,
		Message: message,
	}
}

func replyServerError(w http.ResponseWriter, err error) {
	logrus.Errorf("Rendering 500: %v", err)
	Render.JSON(w, http.StatusInternalServerError, buildError("server-error", err.Error()))
}
