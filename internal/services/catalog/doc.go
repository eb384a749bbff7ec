// Package catalog talks to the remote open-data catalog: it fetches the
// dataset listing, filters it by theme, and streams dataset bodies.
package catalog
