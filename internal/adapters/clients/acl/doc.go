// Package acl is the anti-corruption layer between the question service's
// wire format and the quiz domain.
//
// External DTOs stay unexported in this package. Every failure leaves it as a
// domain error:
//
//   - transport errors, open circuit, exhausted retries and 5xx → [domain.ErrUnavailable]
//   - 404 → [domain.ErrNotFound]
//   - other non-2xx → [domain.ErrUnavailable]
//   - undecodable bodies and unusable questions → [domain.ErrValidation]
package acl
