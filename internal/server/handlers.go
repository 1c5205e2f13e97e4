package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	errs "igpublisher/pkg/errors"
	"igpublisher/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxBodyBytes bounds the publish request body
const maxBodyBytes = 64 << 10

// publishBody keeps fields raw so their JSON types can be checked
type publishBody struct {
	ImageURL json.RawMessage `json:"imageUrl"`
	Caption  json.RawMessage `json:"caption"`
}

// PublishResponse is the 200 body of the publish endpoint
type PublishResponse struct {
	OK      bool   `json:"ok"`
	MediaID string `json:"mediaId"`
}

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"PublishPath": PublishPath,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handlePublish validates the body, runs one publish attempt and maps the
// outcome. The attempt is detached from the client connection: once
// started it runs to completion even if the client goes away.
func (s *Server) handlePublish(c *gin.Context) {
	req, err := parsePublishRequest(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	result, err := s.publisher.Publish(ctx, req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, PublishResponse{OK: true, MediaID: result.MediaID})
}

func parsePublishRequest(c *gin.Context) (models.PublishRequest, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var body publishBody
	dec := json.NewDecoder(c.Request.Body)
	if err := dec.Decode(&body); err != nil {
		return models.PublishRequest{}, errs.Validation("request body must be a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return models.PublishRequest{}, errs.Validation("request body must be a JSON object")
	}

	var imageURL string
	if len(body.ImageURL) == 0 || json.Unmarshal(body.ImageURL, &imageURL) != nil {
		return models.PublishRequest{}, errs.Validation("imageUrl is required")
	}

	var caption string
	if len(body.Caption) > 0 && strings.TrimSpace(string(body.Caption)) != "null" {
		if err := json.Unmarshal(body.Caption, &caption); err != nil {
			return models.PublishRequest{}, errs.Validation("caption must be a string")
		}
	}

	return models.NewPublishRequest(imageURL, caption)
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	message := err.Error()
	if message == "" {
		message = "Unexpected error"
	}

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.JSON(status, ErrorResponse{Error: message})
}
