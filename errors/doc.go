// Package errors defines the classified error taxonomy returned by the
// SnackBase client. Every failure that crosses the client boundary is an
// *AppError whose Code identifies one of a closed set of kinds
// (authentication, validation, not found, rate limit, server, network,
// configuration, unexpected) and whose Retryable flag drives the retry policy.
package errors
