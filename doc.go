/*
Package streamdex defines all common interfaces that weave together the
various subpackages of the continuous-flow exchange engine, as well as
implementations of some of the simpler components (when interfaces would
be too much overhead).

Execution context is passed through context.Context between the host, the
decorators and the handlers. This package defines the common keys to store
information such as block height and block time. Each extension, such as
auth, may add its own keys to enrich the context with specific data.

There should exist two functions for every XYZ of type T that we want to
support in Context:

  WithXYZ(Context, T) Context
  GetXYZ(Context) (val T, ok bool)
*/
package streamdex
