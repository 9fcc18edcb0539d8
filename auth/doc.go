// Package auth signs outgoing restkit requests.
//
// Transport decorates an httpclient.Transport: for every request it
// collects the URL query parameters and, for form and multipart bodies,
// the body parameters, asks an Authorization for a Token over that set and
// sends the request with "Authorization: <scheme> <value>". Bodies are
// buffered once so the bytes signed are the bytes sent.
//
// Authorizations:
//
//   - OAuthorization: OAuth1-shaped signing through an OAuthenticator, with
//     an atomically swapped access token and session-handle refresh
//
//   - BearerAuthorization: OAuth2 access tokens from an oauth2.TokenSource
//
//   - StaticAuthorization: fixed credentials (Basic, Bearer)
//
//   - jwt.Authorization: per-request JWT bound to a query string hash
//
//     signer, _ := auth.NewOAuthorization(authenticator, accessToken)
//     transport := auth.NewTransport(adapter, signer)
package auth
