// Package supabase connects the dashboard to a hosted Supabase project.
//
// AuthClient talks to the GoTrue REST API, RowStore queries the users
// table through PostgREST and TokenValidator checks access tokens locally
// with either the project JWKS or the HS256 JWT secret.
package supabase
