// Package db provides embedded database schema and seed files.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedCoupons contains sample coupon records for local development.
//
//go:embed seed/coupons.json
var SeedCoupons []byte
