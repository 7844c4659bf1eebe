// Package models contains the GORM persistence models for the POS tables.
// Domain types stay free of ORM tags; the persistence package maps between
// the two.
package models
