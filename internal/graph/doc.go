// Package graph is a thin client for the Microsoft Graph REST API.
//
// This package provides:
//   - Client-credentials token acquisition with proactive background refresh
//   - Uniform cursor pagination over every Graph list resource
//   - Bounded loading caches for user-type and group-id lookups
//   - Rate limiting for Microsoft Graph API requests
//   - Error handling for Microsoft Graph API responses
//
// # Authentication
//
// The client authenticates as an application (daemon) using the OAuth2
// client-credentials flow against the tenant token endpoint:
//   - Token URL: https://login.microsoftonline.com/{tenant}/oauth2/v2.0/token
//   - Scope: https://graph.microsoft.com/.default
//
// Tokens are refreshed on a fixed interval just under the typical one-hour
// lifetime. A call that receives an InvalidAuthenticationToken response
// additionally forces a synchronous refresh and retries once.
//
// # Pagination
//
// Every "list" operation returns a first Page. Pages follow @odata.nextLink
// until exhausted; Drain collects all pages, EachPage streams them.
//
// # Rate Limits
//
// Microsoft Graph allows approximately 10,000 requests per 10 minutes per app.
// This package implements conservative rate limiting to avoid hitting quotas.
package graph
