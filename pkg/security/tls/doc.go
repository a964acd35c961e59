/*
Package tls serves the admin API over HTTPS.

	admin:
	  tls:
	    enabled: true
	    cert_file: /etc/custodian/tls/admin.crt
	    key_file: /etc/custodian/tls/admin.key
	    min_version: "1.3"
	    reload_interval: 5m

ServerConfig loads the key pair and returns a crypto/tls configuration
whose GetCertificate follows a CertificateReloader, so a renewed
certificate is picked up without restarting the scheduler.
*/
package tls
