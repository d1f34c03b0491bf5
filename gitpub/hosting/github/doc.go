// Package github implements a hosting.Provider backed by the GitHub
// REST API (cloud or enterprise). It looks up and creates repositories
// under the authenticated user, registers "web" hooks with JSON
// content type, and resolves the authenticated user. Configure with a
// Config containing the access token; set EnterpriseHost for GitHub
// Enterprise installations.
package github
