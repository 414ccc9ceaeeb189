// Package core holds the building blocks shared by every streaming
// computation: the fixed-size Window, the Method contract for single-pass
// transforms, the Action signal type and the indicator config/instance
// protocol.
package core

// Method is a stateful transform advanced one input at a time.
//
// Next consumes exactly one input and returns exactly one output. The output
// depends only on inputs seen so far and the transform's declared window
// length. Next never blocks, never fails and never keeps references into
// caller-owned data.
type Method[I, O any] interface {
	Next(in I) O
}

// Factory builds a Method from its parameters and a seed input. The seed
// initializes internal state so the first Next call is well defined.
// Invalid parameters are reported as an error rather than asserted.
type Factory[P, I, O any] func(params P, seed I) (Method[I, O], error)
