package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/microgenre-api/internal/genre"
	"github.com/Conceptual-Machines/microgenre-api/internal/logger"
	"github.com/Conceptual-Machines/microgenre-api/internal/models"
)

// Generator produces genre cards. *genre.Service satisfies it.
type Generator interface {
	Generate(ctx context.Context, req genre.GenerateRequest) (*models.GenreCard, *genre.Result, error)
}

type GenerateHandler struct {
	generator Generator
}

func NewGenerateHandler(generator Generator) *GenerateHandler {
	return &GenerateHandler{generator: generator}
}

// Generate handles POST /api/generate
func (h *GenerateHandler) Generate(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		respondError(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	req, err := genre.DecodeRequest(body)
	if err != nil {
		status, msg := genre.StatusFor(err)
		logger.Warn("Rejected generate request", logger.WithContext(c))
		respondError(c, status, msg)
		return
	}

	card, result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		status, msg := genre.StatusFor(err)
		fields := logger.WithContext(c)
		fields["status_code"] = status
		if result != nil {
			fields["model"] = result.Model
			fields["provider"] = result.Provider
		}
		logger.Warn("Genre generation failed", fields)
		respondError(c, status, msg)
		return
	}

	c.Header("X-Model", result.Model)
	respondOK(c, http.StatusOK, card)
}
