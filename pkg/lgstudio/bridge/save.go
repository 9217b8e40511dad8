package bridge

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/api"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/observability"
)

// Save writes the whole current graph to the backend and returns the
// document that was sent. A workflow without an ID is created and the
// assigned ID is written back to the store.
//
// The store is marked clean only if the graph did not change while the
// request was in flight. Concurrent saves are not coordinated; the last
// one to reach the backend wins.
func (b *Bridge) Save(ctx context.Context) (api.Document, error) {
	w := b.store.Workflow()
	doc := Encode(w)
	created := w.ID == ""

	ctx, span := b.spans.StartSaveSpan(ctx, w.ID)
	start := time.Now()

	id := w.ID
	var err error
	if created {
		var res api.Created
		res, err = b.backend.Create(ctx, api.CreateRequest{
			Name:        w.Name,
			Description: w.Description,
			Data:        &doc,
			SpaceID:     b.spaceID,
		})
		id = res.ID
	} else {
		err = b.backend.Update(ctx, id, api.UpdateRequest{
			Name:        &w.Name,
			Description: &w.Description,
			Data:        &doc,
		})
	}

	elapsed := time.Since(start)
	b.metrics.RecordSave(ctx, created, elapsed, err)
	b.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogSaveError(b.logger, w.ID, err)
		return doc, fmt.Errorf("save workflow: %w", err)
	}

	cur := b.store.Workflow()
	if created {
		b.store.SetWorkflowMeta(id, cur.Name, cur.Description)
	}
	if cur.Name == w.Name && cur.Description == w.Description && reflect.DeepEqual(Encode(cur), doc) {
		b.store.MarkClean()
	}

	observability.LogSave(b.logger, id, created, float64(elapsed.Microseconds())/1000)
	return doc, nil
}
