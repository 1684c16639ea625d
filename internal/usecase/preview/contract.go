package preview

import (
	"context"

	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
	"github.com/kailas-cloud/lorelink/internal/usecase/mention"
)

// EntityReader loads one catalog entity.
type EntityReader interface {
	Get(ctx context.Context, campaign, id string) (domentity.Record, error)
}

// Annotator links entity mentions inside the description.
type Annotator interface {
	Annotate(ctx context.Context, req mention.Request) (mention.Result, error)
}
