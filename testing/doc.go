// Package testing provides utilities for testing code built on the API client.
//
// # Mocks
//
// The mocks subpackage provides testify-based mock implementations of the
// client's collaborators:
//   - http.RoundTripper, for scripting transport failures and responses
//   - the anti-forgery cookie source
//
// # Fake backend
//
// The fakeapi subpackage runs an in-process echo server that emits every error
// body shape the client understands, rate limits logins, checks the
// anti-forgery token and fails on demand.
//
// # Usage
//
//	import (
//		"github.com/gaborage/apiclient/testing/fakeapi"
//		"github.com/gaborage/apiclient/testing/mocks"
//	)
package testing
