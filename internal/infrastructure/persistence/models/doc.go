// Package models contains GORM persistence models for the remote store tables.
// Domain entities carry no ORM tags; each model converts to and from its
// entity with ToDomain and FromDomain.
//
// Tables: sales, sale_items, customers, payments and one stock table per pool
// (factory_stock, godown_stock).
package models
