/*
Package errors implements custom error interfaces for the engine.

The idea is to reuse as many errors from this package as possible and define
custom package errors when absolutely necessary. Errors are categorized by a
unique code. Use Register to declare a new root error and Wrap to give an
instance additional context. Test errors for a category using the root
error's Is method, never by comparing messages.
*/
package errors
