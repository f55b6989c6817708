// Package utils provides small helpers shared across sqlport packages,
// primarily T-SQL identifier bracketing used when rewriting generated
// scripts for a specific target database.
package utils
