// Package secrets resolves ${secret:name} references in configuration
// values.
//
// Credentials such as the database password, the SMTP password, the broker
// URL and admin operator tokens can be written as references instead of
// literals:
//
//	storage:
//	  postgres:
//	    password: ${secret:postgres-password}
//
// A Resolver tries its providers in order. The file provider reads
// <dir>/postgres-password, which must be a regular file with mode 0600 or
// 0400; trailing whitespace is trimmed. The environment provider reads
// CUSTODIAN_SECRET_POSTGRES_PASSWORD.
//
// Resolution happens when the configuration is loaded or reloaded. A
// reference that no provider can resolve fails the load.
package secrets
