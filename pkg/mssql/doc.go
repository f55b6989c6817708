// Package mssql provides the SQL Server connection provider: a single
// session bound to one target database that executes transformed batches
// and answers the metadata queries the import needs (foreign keys, default
// data path, database existence).
package mssql
