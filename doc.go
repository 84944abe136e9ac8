// Package dashboard provides the server side of a small account dashboard:
// form validation, authentication actions, user listing and statistics, and
// the HTTP controller that renders the pages bound to them.
//
// Backends:
//   - AuthProvider covers the hosted auth surface (sign up, sign in with
//     password, resend confirmation, password recovery, update user, sign out,
//     current user, email link verification). provider/supabase talks to a
//     hosted project, provider/local keeps accounts in a Bun database.
//   - UserStore covers the row queries against the users table (projection,
//     ordering, filtered counts).
//
// Actions:
//   - AuthActions validates input and returns one ActionResult shape for every
//     operation. Backend messages are passed through verbatim.
//   - UserActions lists users, looks up one user by id and computes UserStats.
//     Lookups distinguish a missing row (ErrUserNotFound) from a failed query.
//
// Activity sinks:
//   - ActivitySink receives an ActivityEvent for every auth action. Sinks run
//     best-effort (errors are logged) so they never change an action result.
//
// Derived status:
//   - DeriveStatus is the single place that maps the stored tri-state status and
//     the subscription id to the displayed status.
package dashboard
