// Package classify assigns a document type and tags to recognized text
// using an ordered keyword-and-pattern rule table.
package classify
