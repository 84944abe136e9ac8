// Package local is a self hosted auth backend for the dashboard.
//
// Accounts, one time email tokens and the users table live in a Bun
// database (SQLite or Postgres). Passwords are hashed with bcrypt and
// sessions are HS256 tokens. Email links are handed to a Notifier, the
// default one only logs them.
package local
