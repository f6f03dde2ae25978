// Package limits groups the request admission limiters of the edge server.
// The implementations live in the ratelimit sub-package.
package limits
