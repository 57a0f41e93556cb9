// Package feed implements the social feed's user operations on top of the
// observable store and the optimistic mutation pipeline.
//
// Every operation that needs remote confirmation changes the store first and
// reverts by record id if the remote rejects it. Operations must be called on
// the session's scheduler thread.
package feed
