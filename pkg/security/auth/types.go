package auth

// Token is a configured operator credential.
type Token struct {
	Name  string
	Value string
}

// Operator identifies an authenticated caller.
type Operator struct {
	Name string
}

// Anonymous is attached to requests when no tokens are configured.
var Anonymous = Operator{Name: "anonymous"}
