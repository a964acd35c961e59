/*
Package auth authenticates operators calling the admin API.

Operators present a bearer token configured under admin.tokens:

	admin:
	  tokens:
	    - name: oncall
	      token: ${secret:oncall-token}

The middleware accepts the token from either header:

	Authorization: Bearer <token>
	X-API-Key: <token>

Tokens are compared as SHA-256 digests in constant time. Token values are
never logged; the operator name is, and handlers can read it with
OperatorFrom.

A validator with no tokens lets every request through, which keeps a
loopback-only admin listener usable without configuration.
*/
package auth
