// Package audit records the security trail of the API: token failures and
// refreshes, denied access, rate limiting, rejected GraphQL documents and every
// catalogue mutation.
//
// Events are written as one JSON object per line through logrus, to a file
// (AUDIT_LOG_PATH) or stderr. Values under keys containing password, secret or
// token are masked and long strings are truncated before they are written.
//
// Log a mutation from a handler:
//
//	audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeDataFilterUpdate,
//		audit.ResourceTypeFilter, strconv.FormatInt(id, 10),
//		&audit.ChangeDetails{Before: before, After: after}, "filter updated")
//
// The Middleware puts the logger into the request context and logs every
// mutation and every response with status >= 400.
package audit
