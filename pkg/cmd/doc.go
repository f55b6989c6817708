// Package cmd provides CLI commands for the sqlport tool.
//
// This package implements the command-line interface for sqlport,
// providing commands for importing a SQL unit tree into a SQL Server
// database, validating a tree without a connection, and inspecting the
// catalog a tree produces.
//
// # Available Commands
//
//   - import: execute the full staged import against a target server
//   - validate: dry run the transformation pipeline, enumerating every
//     missing secret and unresolved variable in one pass
//   - catalog: print the ordered unit list and skipped folders
//
// Each command is implemented as a separate function that returns a
// *cli.Command, following the urfave/cli/v3 pattern, and is registered
// with the application through the package's fx module.
package cmd
