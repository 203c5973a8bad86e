// Package things is the example domain served by the application.
//
// Incoming ThingDTO documents are mirrored into the things table. A document
// and a stored Thing are the same thing when their non-zero IDs match, so a
// document with ID 0 is always created.
//
// # Operations
//
//   - Upsert: store one document (PUT /things).
//   - Sync: make the table mirror a list of documents (POST /things/sync),
//     removing things absent from the list. PlanSync only reports.
//   - List / Get: read stored things (GET /things, GET /things/:id).
//
// The relation is registered with Register before the registry is frozen
// and handed to the service through a reconcile.Engine.
package things
