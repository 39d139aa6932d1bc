// Package fetch applies fetch results to per-view state with latest-wins
// semantics.
//
// Every request for a view takes a ticket from a Sequencer. When the response
// arrives it is applied only if no newer ticket has been issued for the same
// view in the meantime, so a slow response for an old filter selection can no
// longer overwrite the data of a newer one. A failed fetch resets the view to
// an empty frame and records the error message.
package fetch
