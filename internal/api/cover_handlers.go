package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerCoverRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCover",
		Method:      http.MethodGet,
		Path:        "/api/v1/covers/{id}",
		Summary:     "Get cover image",
		Description: "Returns cover image bytes. Public so image URLs work in plain <img> tags.",
		Tags:        []string{"Covers"},
	}, mapErrors(s.handleGetCover))
}

// GetCoverInput addresses one stored cover.
type GetCoverInput struct {
	ID          string `path:"id" doc:"Cover ID"`
	IfNoneMatch string `header:"If-None-Match"`
}

// CoverOutput streams raw image bytes.
type CoverOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	ETag         string `header:"ETag"`
	Status       int
	Body         []byte
}

func (s *Server) handleGetCover(ctx context.Context, input *GetCoverInput) (*CoverOutput, error) {
	// Cover ids are content-independent and never reused, so the id is a strong ETag.
	etag := `"` + input.ID + `"`
	if input.IfNoneMatch == etag {
		return &CoverOutput{
			CacheControl: CacheImmutable,
			ETag:         etag,
			Status:       http.StatusNotModified,
		}, nil
	}

	data, contentType, err := s.services.Covers.Open(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &CoverOutput{
		ContentType:  contentType,
		CacheControl: CacheImmutable,
		ETag:         etag,
		Status:       http.StatusOK,
		Body:         data,
	}, nil
}
