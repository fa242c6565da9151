// Package db embeds the storefront schema applied at startup.
package db

import _ "embed"

// Schema holds the DDL for users, catalog, carts, and orders.
//
//go:embed migrations/001_schema.sql
var Schema string
