// Package auth is the identity and role-lifecycle core for the volunteer
// coordination platform. It owns account creation, email-ownership proof,
// access-token issuance, and the admin approval workflow.
//
// Account lifecycle:
//   - Registration creates an account with a null confirmed_at and a
//     token_version of zero, then emits a signed confirmation token via the
//     Mailer collaborator. Elevated access is never granted at registration;
//     an admin request lands the account in ADMIN_PENDING.
//   - Confirmation tokens are stateless. Validity is a function of signature,
//     age, and the account's live token_version; bumping the version on a
//     successful confirmation revokes every outstanding token without a
//     server-side token table.
//   - RoleStateMachine centralizes the approve/deny edges between
//     ADMIN_PENDING, MEMBER, and ADMIN. Every rejected edge surfaces a
//     distinct categorized error.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the authenticator,
//     the registration and confirmation commands, and the state machine.
//     Sinks run best-effort (errors are logged) so you can forward events to a
//     database or queue without blocking authentication.
package auth
