package draw

import "errors"

// Erros do motor de sorteio. Todos são síncronos e determinísticos:
// repetir a chamada com as mesmas entradas produz a mesma classe de erro.
var (
	ErrInvalidCaseState     = errors.New("invalid case state")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrArithmeticInvariant  = errors.New("arithmetic invariant violation")
)
