// Package errors provides structured, actionable error messages for the tx
// command line.
//
// Library packages return plain sentinel errors. At the edge, Classify maps
// them onto a TxError carrying a stable code, a category and a hint, which
// Format renders for the terminal.
//
// # Error Categories
//
//   - exchange: the server answered with something that is not a valid
//     exchange response
//   - region: the document lacks the markers an exchange targets
//   - transport: the server could not be reached
//   - config: tx.json or tx.toml is invalid
//   - cli: bad command line input
//
// # Usage
//
//	err := errors.New("E020").
//	    WithDetail(`transport "grpc" is not supported`).
//	    WithSuggestion(`Use "http" or "ws"`)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E020: Invalid configuration
//	//
//	//   transport "grpc" is not supported
//	//
//	//   Hint: Use "http" or "ws"
package errors
