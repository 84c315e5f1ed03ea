package diag

// Error code constants, organized by phase (spec §7). Each code names
// a specific diagnosable condition so tooling (for example a consumer
// of Report.ToJSON output) can act on the code alone.
const (
	// Lexer errors (LEX###)
	LEX001 = "LEX001" // malformed numeric literal
	LEX002 = "LEX002" // unterminated string literal
	LEX003 = "LEX003" // unterminated char literal
	LEX004 = "LEX004" // unknown character

	// Parser errors (PAR###)
	PAR001 = "PAR001" // unexpected token
	PAR002 = "PAR002" // missing closing delimiter
	PAR003 = "PAR003" // invalid class declaration
	PAR004 = "PAR004" // invalid function declaration
	PAR005 = "PAR005" // invalid generic parameter list
	PAR006 = "PAR006" // invalid enum declaration
	PAR007 = "PAR007" // invalid property declaration
	PAR008 = "PAR008" // invalid f-string interpolation
	PAR009 = "PAR009" // invalid type annotation
	PAR010 = "PAR010" // invalid lambda syntax

	// Resolver errors (RES###)
	RES001 = "RES001" // undeclared identifier
	RES002 = "RES002" // undeclared type
	RES003 = "RES003" // type mismatch
	RES004 = "RES004" // arity mismatch
	RES005 = "RES005" // abstract class instantiation
	RES006 = "RES006" // duplicate declaration
	RES007 = "RES007" // unknown field or property
	RES008 = "RES008" // unknown method
	RES009 = "RES009" // generic argument count mismatch
	RES010 = "RES010" // parent class not found
	RES011 = "RES011" // non-exhaustive switch (rich enum)
	RES012 = "RES012" // break/continue outside a loop
	RES013 = "RES013" // return outside a function
	RES014 = "RES014" // invalid keep/keep_return annotation
)
