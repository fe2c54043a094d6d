// Package appetite scores extracted submissions against configurable
// business rules: weighted risk factors per line of business, then tiered
// accept/review/decline appetite bounds.
package appetite
