/*
Package security groups the protections around custodian's operator
surface.

  - secrets resolves ${secret:name} references in configuration from a
    mounted secrets directory or the environment.
  - auth checks operator bearer tokens on the admin API.
  - tls serves the admin API over HTTPS with certificate hot reload.

Health probes and metrics stay unauthenticated so orchestrators and
scrapers need no credentials; status and manual sweep triggers require a
token once any is configured.
*/
package security
