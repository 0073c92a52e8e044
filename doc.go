// Package jobboard is the client side core of a job board: the session
// store, the tenant (organization) context of community managers, the offer
// publication workflow and the error taxonomy shared with the HTTP pipeline
// in middleware/access and middleware/tenantscope.
//
// Session and tenant state:
//   - SessionStore and TenantContext are explicit objects, one per
//     authenticated session, persisted through storage.Store. Writers are
//     serialized and every change reaches each subscriber exactly once
//     before the next change is applied.
//   - Roles are parsed once into Role values by ParseRole; everything past
//     the session boundary compares typed values.
//
// Offer lifecycle:
//   - OfferLifecycle owns the transition graph (submit, validate, reject,
//     publish, close) plus sponsorship. Role and tenant gates run before the
//     backend is called. Expiry is derived from the expiration date, never
//     from the stored "expiree" value.
//
// Organization review:
//   - TenantReview lets administrators validate, reject (with a reason) and
//     revalidate organizations, with the same hooks and activity events.
//
// Errors:
//   - Every error surfaced to callers is a go-errors *Error whose TextCode
//     is a Kind. Use KindOf, IsKind and FieldErrors to inspect them.
//
// Activity sinks:
//   - ActivitySink receives login, logout, tenant selection and workflow
//     events. Sinks run best-effort (errors are logged).
package jobboard
