// Package testutil contains helper builders and doubles used across tests
// to reduce boilerplate when constructing conversations, tool calls and
// recording tools. They are not intended for production usage.
package testutil
