// Package models contains the GORM persistence models for the finance
// aggregates. Each model converts to and from its domain type with
// ToDomain and a <Name>ModelFromDomain constructor; the database schema
// itself is owned by the SQL migrations.
package models
