// Package models defines the records wedplan persists through the data store.
//
// The estimator's own types live in the calculator package and are never
// stored; share links carry them instead. What the backend does keep is the
// output of the document-export collaborator:
//   - Export: a rendered drinks estimate, downloadable once stored
//
// Records map to storage.Row values with the helpers next to each model, so
// the generic data store stays unaware of Go types.
package models
