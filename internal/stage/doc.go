// Package stage defines the pipeline stage contract and the worker that
// drives every stage the same way: claim an envelope, run the handler,
// persist, forward, acknowledge. Handlers stay free of queue mechanics and
// retry policy.
package stage
