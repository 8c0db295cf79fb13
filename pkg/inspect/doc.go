// Package inspect is the library API for running equipment inspections
// against a ppecheck workspace.
//
// It wraps the internal checklist, validation and submission packages
// together with the workspace stores (drafts, records, evidence, audit log)
// so that a host only deals with sessions and records.
//
// # Concurrency Safety
//
// Every mutating call loads the draft, applies the change and saves it with
// an optimistic version check:
//
//   - Two clients editing the same session concurrently never silently
//     overwrite each other; the loser gets errclass.ErrVersionConflict and
//     can reload and retry.
//
//   - Records are immutable once archived. Reading records is always safe.
//
// # Usage
//
//	c, err := inspect.OpenOrInit(dir)
//	defer c.Close()
//	s, _ := c.Start(ctx, model.ProductSeed{Name: "Harness X200"})
//	c.Decide(ctx, string(s.ID), "harness", "webbing", model.StatusPass)
//	// ... decide every item ...
//	rec, err := c.Submit(ctx, string(s.ID))
//	if errors.Is(err, errclass.ErrIncompleteChecklist) {
//	    // show the pending items to the inspector
//	}
package inspect
