// Package fetch implements the fetcher chain and specifier resolver of
// spec.md §4.1/§6: a polymorphic three-operation collaborator
// (canonicalize/list/fetch) with chain semantics built on a three-way
// result (design note §9: Understood(T) | NotUnderstood | Err(diagnostic)).
package fetch

import "github.com/mstoykov/prebake/ids"

// Outcome tags a Result as one of the three variants named in spec.md §6/§9.
type Outcome int

const (
	// Understood carries a usable value.
	Understood Outcome = iota
	// NotUnderstood means this fetcher does not recognize the input and
	// the chain should advance to the next fetcher.
	NotUnderstood
	// Err means the chain should stop with this error.
	Err
)

// Result[T] is the sum type every fetcher operation returns.
type Result[T any] struct {
	Outcome Outcome
	Value   T
	Error   error
}

// Ok constructs an Understood result.
func Ok[T any](v T) Result[T] { return Result[T]{Outcome: Understood, Value: v} }

// NotUnderstoodResult constructs a NotUnderstood result.
func NotUnderstoodResult[T any]() Result[T] { return Result[T]{Outcome: NotUnderstood} }

// ErrResult constructs an Err result.
func ErrResult[T any](err error) Result[T] { return Result[T]{Outcome: Err, Error: err} }

// FetchedSource is the payload of a successful Fetch call.
type FetchedSource struct {
	ID         ids.ID
	Source     string
	Properties map[string]string
}
