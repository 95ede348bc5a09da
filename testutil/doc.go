// Package testutil builds throwaway architecture map databases and serves
// them over HTTP the way the production hosting does, including Range
// request support and the chunk config document.
package testutil
