package integrity

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/firmkeeper/internal/model"
	"github.com/roach88/firmkeeper/internal/rules"
)

// BatchResult maps "type:id" to the issues found for that entity.
// Entities without issues are absent.
type BatchResult map[string][]model.ValidationIssue

// BatchValidate validates entities in fixed-size chunks, running each
// chunk concurrently. Each entity is validated in a strict context for its
// own tenant. Invalid entities are logged and skipped.
func (e *Engine) BatchValidate(ctx context.Context, entities []model.Entity) BatchResult {
	result := make(BatchResult)

	for start := 0; start < len(entities); start += e.batchSize {
		chunk := entities[start:min(start+e.batchSize, len(entities))]
		found := make([][]model.ValidationIssue, len(chunk))

		var g errgroup.Group
		for i, entity := range chunk {
			if err := checkEntity(entity); err != nil {
				e.logger.Warn("skipping entity in batch", "error", err)
				continue
			}
			i, entity := i, entity
			g.Go(func() error {
				found[i] = e.validateEntity(ctx, entity, rules.NewContext(entity.Tenant()))
				return nil
			})
		}
		_ = g.Wait() // Goroutines never return errors

		collect(result, chunk, found)
	}

	return result
}

// OptimizedBatchValidate validates entities grouped by type, in sub-batches
// per type, through the validation queue. Concurrent validations of the same
// entity are merged and at most the configured number run at once.
//
// vctx may be nil; each entity is validated for its own tenant. Lenient
// contexts drop informational issues. Validations abandoned because ctx
// ended are logged and absent from the result.
func (e *Engine) OptimizedBatchValidate(ctx context.Context, entities []model.Entity, vctx *rules.ValidationContext) BatchResult {
	result := make(BatchResult)

	byType := make(map[model.EntityType][]model.Entity)
	for _, entity := range entities {
		if err := checkEntity(entity); err != nil {
			e.logger.Warn("skipping entity in batch", "error", err)
			continue
		}
		byType[entity.EntityType()] = append(byType[entity.EntityType()], entity)
	}

	for _, t := range model.AllEntityTypes {
		group := byType[t]
		if len(group) == 0 {
			continue
		}
		// Resolve the plan once per type before fanning out.
		e.registry.ExecutionOrder(t)

		for start := 0; start < len(group); start += e.optimizedBatchSize {
			sub := group[start:min(start+e.optimizedBatchSize, len(group))]
			found := make([][]model.ValidationIssue, len(sub))

			var g errgroup.Group
			for i, entity := range sub {
				i, entity := i, entity
				g.Go(func() error {
					full := contextFor(entity.Tenant(), vctx)
					issues, err := e.queue.Do(ctx, model.KeyOf(entity), func() []model.ValidationIssue {
						return e.validateEntity(ctx, entity, full)
					})
					if err != nil {
						e.logger.Warn("validation abandoned",
							"entity", model.KeyOf(entity),
							"error", err)
						return nil
					}
					found[i] = filterLevel(issues, full.Level)
					return nil
				})
			}
			_ = g.Wait() // Goroutines never return errors

			collect(result, sub, found)
		}
	}

	return result
}

func collect(result BatchResult, entities []model.Entity, found [][]model.ValidationIssue) {
	for i, issues := range found {
		if len(issues) > 0 {
			result[model.KeyOf(entities[i])] = issues
		}
	}
}
