// Package generic implements a providers.Parser that works on plain
// HTML novel sites. Title, body and next-link extraction run through
// ordered selector lists where the first usable match wins.
package generic
