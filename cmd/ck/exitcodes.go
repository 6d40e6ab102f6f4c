package main

// Exit codes shared by all subcommands.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (bad alias table, cache path)
	ExitDataError   = 3 // Data error (malformed citekeys, invalid references)
)
