// Package guard decides, once per request and before any handler runs,
// whether the request may proceed.
//
// Owns:
//   - the ordered rule list and first-match evaluation
//   - turning Basic credentials or a token cookie into a domain.Principal
//   - issuing token cookies for logged-in users
//
// Does not own:
//   - password storage or hashing (an Authenticator does that)
//   - post storage
//
// Invariants:
//   - rules are evaluated top to bottom and the first match wins
//   - a path matching no rule is rejected
//   - a rejected request never reaches the next handler
package guard
