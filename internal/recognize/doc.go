// Package recognize is the text-recognition stage. The Engine interface
// isolates the OCR backend; the default engine treats documents as plain
// UTF-8 text.
package recognize
