// Package errors provides standardized error handling for pitwall components.
//
// # Classification
//
//   - Transient: sink timeouts, non-2xx responses, token lookups (retry with backoff)
//   - Invalid: malformed or truncated datagrams (drop and count)
//   - Fatal: bad configuration, a source socket that cannot bind (stop that component)
//
// Classification survives wrapping, so errors.Is and errors.As keep working
// through the chain.
//
// # Wrapping
//
// All wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// Use the classified variants when the caller needs to decide what to do next:
//
//	errors.WrapTransient(err, "HTTPSink", "Send", "post batch")
//	errors.WrapInvalid(err, "Decoder", "Decode", "parse header")
//	errors.WrapFatal(err, "Source", "Start", "bind socket")
//
// This package shadows the standard library name on purpose; import it as
// errs when both are needed in one file.
package errors
