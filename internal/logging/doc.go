// Package logging writes structured JSON logs for amandocs to a rotating
// file under ~/.amandocs/logs/ and reads them back for `amandocs logs`.
//
// CLI commands also log warnings and above to stderr. The MCP server never
// writes to stderr or stdout, since stdout carries the protocol stream.
package logging
