// Package models contains the GORM persistence models of the prepacking service.
// Domain types carry no ORM tags; the models here own table mappings and convert
// to and from the domain aggregates.
package models
