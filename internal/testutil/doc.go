// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when scripting model responses, capturing log output and
// observing checkpoint traffic. They are not intended for production usage.
package testutil
