package ports

import (
	"context"

	"github.com/kirillkom/document-sorter/internal/core/domain"
)

// Categorizer is the inbound contract for one categorization request.
type Categorizer interface {
	Categorize(ctx context.Context, files []domain.UploadedFile) (*domain.Batch, error)
}
